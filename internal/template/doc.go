// Package template wraps text/template with the sprig function library and
// Erlang term helpers (erlAtom, erlString, erlBinary). It is the text
// substitution layer under the configuration renderer.
package template
