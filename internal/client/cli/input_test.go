package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetMultiline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "double enter", input: "a\nb\n\n\n", want: "a\nb"},
		{name: "crlf", input: "a\r\nb\r\n\r\n", want: "a\nb"},
		{name: "immediate blank line", input: "\n", want: ""},
		{name: "eof without blank line", input: "a\nb", want: "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetMultiline(rdr(tt.input), "Notes", &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetSecret(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("1234"), nil }
	var out bytes.Buffer
	pw, err := GetSecret("PIN", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), pw)
	assert.Equal(t, "PIN: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetSecret("PIN", &out)
	require.Error(t, err)
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"home", "errands"}, ParseTags(" home, errands ,home,, "))
	assert.Equal(t, []string{}, ParseTags(""))
}

func TestPINPrompt(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("0000"), nil }

	var out bytes.Buffer
	p := NewPINPrompt(&out)
	pin, err := p.RequestPIN(context.Background(), "Enter your passkey PIN")
	require.NoError(t, err)
	assert.Equal(t, []byte("0000"), pin)
	assert.Contains(t, out.String(), "Enter your passkey PIN (empty to cancel)")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.RequestPIN(ctx, "Enter your passkey PIN")
	require.ErrorIs(t, err, context.Canceled)
}
