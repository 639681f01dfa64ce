package cmd

import (
	"errors"
	"testing"
)

func TestExitCodeClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitOther},
		{"usage error", usageError(errors.New("bad flag")), ExitUsageError},
		{"input error", inputError(errors.New("bad path")), ExitInputError},
		{"resource limit", resourceLimitError(errors.New("too many files")), ExitResourceLimit},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExitCode(c.err); got != c.want {
				t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestExitErrorWrapsUnderlyingError(t *testing.T) {
	base := errors.New("root cause")
	wrapped := usageError(base)
	if !errors.Is(wrapped, base) {
		t.Error("expected errors.Is to see through ExitError to the wrapped cause")
	}
}
