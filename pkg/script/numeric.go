package script

import "strconv"

func parseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}

// parseInt parses a signed decimal integer, reporting overflow rather than
// silently wrapping (ParseInt with bitSize=64 already does this for us).
func parseInt(text string) (int64, bool) {
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}
