// Package erlang formats and checks the subset of Erlang term syntax used in
// RabbitMQ's classic rabbitmq.config file.
package erlang

import (
	"regexp"
	"strings"
)

var unquotedAtom = regexp.MustCompile(`^[a-z][A-Za-z0-9_@]*$`)

// IsAtom reports whether s can be written as an unquoted atom.
func IsAtom(s string) bool {
	return unquotedAtom.MatchString(s)
}

// Atom renders s as an atom, single-quoting it when required.
func Atom(s string) string {
	if IsAtom(s) {
		return s
	}
	return "'" + escape(s, '\'') + "'"
}

// String renders s as a double-quoted Erlang string.
func String(s string) string {
	return `"` + escape(s, '"') + `"`
}

// Binary renders s as a binary literal, <<"s">>.
func Binary(s string) string {
	return "<<" + String(s) + ">>"
}

// Bool renders a boolean atom.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Tuple renders {a, b, ...}.
func Tuple(elems ...string) string {
	return "{" + strings.Join(elems, ", ") + "}"
}

// List renders [a, b, ...].
func List(elems ...string) string {
	return "[" + strings.Join(elems, ", ") + "]"
}

// Pair renders a two-element tuple keyed by an atom, the building block of
// every proplist in rabbitmq.config.
func Pair(key, value string) string {
	return Tuple(Atom(key), value)
}

func escape(s string, quote byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
