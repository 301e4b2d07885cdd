package cli

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// InputSource supplies one utterance per call. An empty string means nothing
// was heard and the caller should ask again; io.EOF ends the session.
type InputSource interface {
	ReadLine(ctx context.Context) (string, error)
}

// KeyboardInput reads lines from a terminal or pipe.
type KeyboardInput struct {
	scanner *bufio.Scanner
}

func NewKeyboardInput(r io.Reader) *KeyboardInput {
	return &KeyboardInput{scanner: bufio.NewScanner(r)}
}

func (k *KeyboardInput) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !k.scanner.Scan() {
		if err := k.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(k.scanner.Text()), nil
}
