package cli

import (
	"context"
	"io"

	"github.com/dmitrijs2005/taskseal/internal/passkey/softkey"
)

// PINPrompt asks for the passkey PIN on the terminal.
type PINPrompt struct {
	out io.Writer
}

var _ softkey.UserVerifier = (*PINPrompt)(nil)

func NewPINPrompt(out io.Writer) *PINPrompt {
	return &PINPrompt{out: out}
}

// RequestPIN reads the PIN without echo. An empty line cancels the ceremony.
func (p *PINPrompt) RequestPIN(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GetSecret(prompt+" (empty to cancel)", p.out)
}
