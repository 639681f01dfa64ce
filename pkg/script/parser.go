package script

import "fmt"

// DefaultMaxDepth bounds table nesting recursion depth during a single
// file's parse, so a maliciously or accidentally deep-nested blueprint
// cannot blow the stack.
const DefaultMaxDepth = 64

// Parser turns a token stream into a Value tree. It never evaluates
// anything: table constructors, literals, and constant key expressions are
// the entire grammar.
type Parser struct {
	lex      *lexer
	lookahed *token
	maxDepth int
	file     string
}

// Parse parses the full contents of a single file into a Value. The
// top-level form must be exactly one table constructor; any trailing
// non-whitespace content is a TrailingContent error.
func Parse(file, src string, maxDepth int) (*Value, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	p := &Parser{lex: newLexer(file, src), maxDepth: maxDepth, file: file}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokLBrace {
		return nil, newParseError(ErrUnexpectedToken, tok.pos, "top-level form must be a table constructor, found %v", describeToken(tok))
	}

	val, err := p.parseValue(0)
	if err != nil {
		return nil, err
	}

	tail, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tail.kind != tokEOF {
		return nil, newParseError(ErrTrailingContent, tail.pos, "trailing content after top-level value")
	}

	return val, nil
}

func (p *Parser) peek() (token, error) {
	if p.lookahed != nil {
		return *p.lookahed, nil
	}
	tok, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	p.lookahed = &tok
	return tok, nil
}

func (p *Parser) pop() (token, error) {
	tok, err := p.peek()
	if err != nil {
		return token{}, err
	}
	p.lookahed = nil
	return tok, nil
}

func (p *Parser) expect(kind tokenKind, what string) (token, error) {
	tok, err := p.pop()
	if err != nil {
		return token{}, err
	}
	if tok.kind != kind {
		return token{}, newParseError(ErrUnexpectedToken, tok.pos, "expected %s, found %v", what, describeToken(tok))
	}
	return tok, nil
}

// parseValue parses one value at the given nesting depth.
func (p *Parser) parseValue(depth int) (*Value, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.kind {
	case tokNil:
		p.pop()
		return &Value{Kind: KindNil, Position: tok.pos}, nil
	case tokTrue:
		p.pop()
		return &Value{Kind: KindBoolean, Bool: true, Position: tok.pos}, nil
	case tokFalse:
		p.pop()
		return &Value{Kind: KindBoolean, Bool: false, Position: tok.pos}, nil
	case tokInt:
		p.pop()
		return &Value{Kind: KindInteger, Int: tok.intVal, Position: tok.pos}, nil
	case tokFloat:
		p.pop()
		return &Value{Kind: KindFloat, Float: tok.floatVal, Position: tok.pos}, nil
	case tokString:
		p.pop()
		return &Value{Kind: KindString, Str: tok.text, Position: tok.pos}, nil
	case tokLBrace:
		return p.parseTable(depth)
	default:
		return nil, newParseError(ErrUnexpectedToken, tok.pos, "expected a value, found %v", describeToken(tok))
	}
}

// parseTable parses `{ entry, entry, ... }` where each entry is a bare value
// (positional), `name = value`, or `[expr] = value`.
func (p *Parser) parseTable(depth int) (*Value, error) {
	open, err := p.expect(tokLBrace, "{")
	if err != nil {
		return nil, err
	}
	if depth+1 > p.maxDepth {
		return nil, newParseError(ErrUnexpectedToken, open.pos, "table nesting exceeds max depth %d", p.maxDepth)
	}

	table := &Value{Kind: KindTable, Position: open.pos}
	nextPositional := 1

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokRBrace {
			p.pop()
			break
		}

		entry, err := p.parseEntry(depth, &nextPositional)
		if err != nil {
			return nil, err
		}
		table.Entries = append(table.Entries, entry)

		sep, err := p.peek()
		if err != nil {
			return nil, err
		}
		if sep.kind == tokComma || sep.kind == tokSemicolon {
			p.pop()
			continue
		}
		if sep.kind == tokRBrace {
			p.pop()
			break
		}
		return nil, newParseError(ErrUnexpectedToken, sep.pos, "expected , ; or } in table, found %v", describeToken(sep))
	}

	return table, nil
}

// parseEntry parses one table entry: `name = value`, `[expr] = value`, or a
// bare positional value.
func (p *Parser) parseEntry(depth int, nextPositional *int) (Entry, error) {
	tok, err := p.peek()
	if err != nil {
		return Entry{}, err
	}

	// name = value
	if tok.kind == tokIdent {
		save := tok
		p.pop()
		eq, err := p.peek()
		if err != nil {
			return Entry{}, err
		}
		if eq.kind == tokEquals {
			p.pop()
			val, err := p.parseValue(depth + 1)
			if err != nil {
				return Entry{}, err
			}
			return Entry{Key: save.text, Value: val, Position: save.pos}, nil
		}
		// Not a key after all — this identifier token isn't a legal bare
		// value in this grammar (no evaluation of bare names), so this is
		// a syntax error rather than a positional string.
		return Entry{}, newParseError(ErrUnexpectedToken, save.pos, "bare identifier %q is not a valid value", save.text)
	}

	// [expr] = value, where expr is a constant (string or integer key).
	if tok.kind == tokLBracket {
		p.pop()
		keyTok, err := p.peek()
		if err != nil {
			return Entry{}, err
		}
		var keyStr string
		var keyIdx int
		var isPositionalKey bool
		switch keyTok.kind {
		case tokString:
			p.pop()
			keyStr = keyTok.text
		case tokInt:
			p.pop()
			keyIdx = int(keyTok.intVal)
			isPositionalKey = true
		default:
			return Entry{}, newParseError(ErrUnexpectedToken, keyTok.pos, "expected constant key in [ ], found %v", describeToken(keyTok))
		}
		if _, err := p.expect(tokRBracket, "]"); err != nil {
			return Entry{}, err
		}
		if _, err := p.expect(tokEquals, "="); err != nil {
			return Entry{}, err
		}
		val, err := p.parseValue(depth + 1)
		if err != nil {
			return Entry{}, err
		}
		if isPositionalKey {
			return Entry{Index: keyIdx, Value: val, Position: tok.pos}, nil
		}
		return Entry{Key: keyStr, Value: val, Position: tok.pos}, nil
	}

	// Bare positional value.
	val, err := p.parseValue(depth + 1)
	if err != nil {
		return Entry{}, err
	}
	idx := *nextPositional
	*nextPositional++
	return Entry{Index: idx, Value: val, Position: val.Position}, nil
}

func describeToken(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tokString:
		return "string literal"
	case tokInt, tokFloat:
		return fmt.Sprintf("number %q", t.text)
	default:
		return fmt.Sprintf("token %d", int(t.kind))
	}
}
