package erlang

import (
	"fmt"
	"strings"
)

// SyntaxError describes where a term text stops being well-formed.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

type tokenKind int

const (
	tokValue tokenKind = iota
	tokOpen
	tokClose
	tokComma
	tokDot
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

var closers = map[string]string{"[": "]", "{": "}", "<<": ">>"}

// Check verifies that text is exactly one term terminated by a full stop,
// with balanced brackets and no dangling or doubled separators. Comments
// and whitespace are allowed anywhere.
func Check(text string) error {
	return check(text, true)
}

// CheckFragment verifies that text is a single well-formed term without a
// terminating full stop, as used for values spliced into a larger document.
func CheckFragment(text string) error {
	return check(text, false)
}

func check(text string, terminated bool) error {
	toks, err := tokenize(text)
	if err != nil {
		return err
	}

	type frame struct {
		open string
		tok  token
	}
	var stack []frame
	afterValue := false
	var prev *token
	done := false
	values := 0

	for i := range toks {
		t := toks[i]
		if done {
			return errAt(t, "unexpected %q after terminating full stop", t.text)
		}
		switch t.kind {
		case tokValue:
			if afterValue {
				return errAt(t, "missing separator before %q", t.text)
			}
			if len(stack) == 0 {
				values++
				if values > 1 {
					return errAt(t, "more than one top-level term")
				}
			}
			afterValue = true
		case tokOpen:
			if afterValue && !(prev != nil && strings.HasSuffix(prev.text, "#")) {
				return errAt(t, "missing separator before %q", t.text)
			}
			if len(stack) == 0 {
				values++
				if values > 1 {
					return errAt(t, "more than one top-level term")
				}
			}
			stack = append(stack, frame{open: t.text, tok: t})
			afterValue = false
		case tokClose:
			if len(stack) == 0 {
				return errAt(t, "unbalanced %q", t.text)
			}
			top := stack[len(stack)-1]
			if closers[top.open] != t.text {
				return errAt(t, "%q closes %q opened at line %d", t.text, top.open, top.tok.line)
			}
			if prev != nil && prev.kind == tokComma {
				return errAt(*prev, "dangling separator before %q", t.text)
			}
			stack = stack[:len(stack)-1]
			afterValue = true
		case tokComma:
			if len(stack) == 0 {
				return errAt(t, "separator outside of a list or tuple")
			}
			if !afterValue {
				return errAt(t, "separator without a preceding element")
			}
			afterValue = false
		case tokDot:
			if !terminated {
				return errAt(t, "unexpected full stop")
			}
			if len(stack) != 0 {
				top := stack[len(stack)-1]
				return errAt(t, "full stop inside unclosed %q opened at line %d", top.open, top.tok.line)
			}
			if !afterValue {
				return errAt(t, "full stop without a term")
			}
			done = true
		}
		prev = &toks[i]
	}

	if len(stack) != 0 {
		top := stack[len(stack)-1]
		return errAt(top.tok, "unclosed %q", top.open)
	}
	if values == 0 {
		return &SyntaxError{Line: 1, Col: 1, Msg: "no term found"}
	}
	if terminated && !done {
		return &SyntaxError{Line: lastLine(text), Col: 1, Msg: "missing terminating full stop"}
	}
	return nil
}

func errAt(t token, format string, args ...interface{}) error {
	return &SyntaxError{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

func lastLine(text string) int {
	return strings.Count(text, "\n") + 1
}

func tokenize(text string) ([]token, error) {
	var toks []token
	line, col := 1, 1
	i := 0

	advance := func(n int) {
		for k := 0; k < n && i < len(text); k++ {
			if text[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < len(text) {
		c := text[i]
		startLine, startCol := line, col
		emit := func(kind tokenKind, s string) {
			toks = append(toks, token{kind: kind, text: s, line: startLine, col: startCol})
		}

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			advance(1)
		case c == '%':
			for i < len(text) && text[i] != '\n' {
				advance(1)
			}
		case c == '"' || c == '\'':
			start := i
			advance(1)
			closed := false
			for i < len(text) {
				if text[i] == '\\' {
					advance(2)
					continue
				}
				if text[i] == c {
					advance(1)
					closed = true
					break
				}
				advance(1)
			}
			if !closed {
				return nil, &SyntaxError{Line: startLine, Col: startCol, Msg: "unterminated quoted literal"}
			}
			emit(tokValue, text[start:i])
		case strings.HasPrefix(text[i:], "<<"):
			emit(tokOpen, "<<")
			advance(2)
		case strings.HasPrefix(text[i:], ">>"):
			emit(tokClose, ">>")
			advance(2)
		case c == '[' || c == '{':
			emit(tokOpen, string(c))
			advance(1)
		case c == ']' || c == '}':
			emit(tokClose, string(c))
			advance(1)
		case c == ',' || c == '|':
			emit(tokComma, string(c))
			advance(1)
		case strings.HasPrefix(text[i:], "=>") || strings.HasPrefix(text[i:], ":="):
			emit(tokComma, text[i:i+2])
			advance(2)
		case c == '.' && isTerminatorDot(text, i):
			emit(tokDot, ".")
			advance(1)
		default:
			start := i
			for i < len(text) && isWordByte(text, i) {
				if text[i] == '$' {
					advance(2)
					continue
				}
				advance(1)
			}
			if i == start {
				return nil, &SyntaxError{Line: startLine, Col: startCol, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			emit(tokValue, text[start:i])
		}
	}
	return toks, nil
}

// isTerminatorDot reports whether the '.' at i ends a form: Erlang requires
// whitespace, a comment or end of input after it.
func isTerminatorDot(text string, i int) bool {
	if i+1 >= len(text) {
		return true
	}
	n := text[i+1]
	return n == ' ' || n == '\t' || n == '\n' || n == '\r' || n == '%'
}

func isWordByte(text string, i int) bool {
	c := text[i]
	switch c {
	case ' ', '\t', '\n', '\r', '%', '"', '\'', '[', ']', '{', '}', ',', '|':
		return false
	case '.':
		return !isTerminatorDot(text, i)
	case '<', '>':
		return !strings.HasPrefix(text[i:], "<<") && !strings.HasPrefix(text[i:], ">>")
	case '=', ':':
		return !strings.HasPrefix(text[i:], "=>") && !strings.HasPrefix(text[i:], ":=")
	}
	return true
}
