package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RenderWithSprigAndErlangHelpers(t *testing.T) {
	e := New()
	require.NoError(t, e.Parse("t", `{{ .Items | join ", " }} {{ erlAtom .Node }} {{ erlBinary .User }}`))

	out, err := e.Render("t", map[string]interface{}{
		"Items": []string{"a", "b"},
		"Node":  "rabbit@host-1",
		"User":  "guest",
	})
	require.NoError(t, err)
	assert.Equal(t, `a, b 'rabbit@host-1' <<"guest">>`, out)
}

func TestEngine_MissingKeyIsError(t *testing.T) {
	e := New().MustParse("t", "{{ .absent }}")

	_, err := e.Render("t", map[string]interface{}{})
	assert.Error(t, err)
}

func TestEngine_UnknownTemplate(t *testing.T) {
	_, err := New().Render("nope", nil)
	assert.EqualError(t, err, "template nope is not registered")
}

func TestEngine_ParseError(t *testing.T) {
	err := New().Parse("broken", "{{ if }}")
	assert.Error(t, err)
}

func TestEngine_Names(t *testing.T) {
	e := New().MustParse("b", "b").MustParse("a", "a")
	assert.Equal(t, []string{"a", "b"}, e.Names())
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "rabbit@localhost", want: "rabbit@localhost"},
		{in: "/var/log/rabbitmq", want: "/var/log/rabbitmq"},
		{in: "-smp enable", want: "'-smp enable'"},
		{in: "$HOME", want: "'$HOME'"},
		{in: "-setcookie it's", want: `'-setcookie it'\''s'`},
		{in: "'", want: `''\'''`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellQuote(tt.in))
		})
	}
}
