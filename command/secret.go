package command

import (
	"context"
	"errors"
	"fmt"
	"github.com/mattn/go-tty"
	"github.com/tigerwill90/derive/internal/enclave"
	"github.com/tigerwill90/derive/internal/pinentry"
	"golang.org/x/term"
	"io"
	"os"
)

var errCanceled = errors.New("input canceled")

const (
	keyEnter     = '\r'
	keyNewline   = '\n'
	keyBackspace = 8
	keyDelete    = 127
	keyCtrlC     = 3
	keyCtrlD     = 4
)

// readSecret obtains the secret from the pinentry program, the environment,
// the terminal or the first line of stdin, in that order.
func (e *env) readSecret(ctx context.Context, prompt string) (*enclave.Enclave, error) {
	if len(e.pinentry) > 0 {
		e.logger.Debug("reading secret from pinentry", "program", e.pinentry[0])
		return pinentry.GetPin(ctx, e.pinentry, pinentry.WithPrompt(prompt))
	}
	if v, ok := os.LookupEnv(passwordEnv); ok {
		e.logger.Debug("reading secret from environment", "var", passwordEnv)
		return enclave.FromString(v), nil
	}
	if e.interactive() {
		return readTTY(prompt)
	}
	return e.readLine()
}

// interactive reports whether stdin is a terminal.
func (e *env) interactive() bool {
	f, ok := e.stdin.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readTTY reads a secret from the controlling terminal without echo.
func readTTY(prompt string) (*enclave.Enclave, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open terminal: %w", err)
	}
	defer t.Close()

	fmt.Fprint(t.Output(), prompt)
	defer fmt.Fprintln(t.Output())

	var b enclave.Builder
	for {
		r, err := t.ReadRune()
		if err != nil {
			b.Reset()
			return nil, err
		}
		switch r {
		case keyEnter, keyNewline:
			return b.Seal(), nil
		case keyBackspace, keyDelete:
			b.Backspace()
		case keyCtrlC, keyCtrlD:
			b.Reset()
			return nil, errCanceled
		default:
			if _, err := b.WriteRune(r); err != nil {
				b.Reset()
				return nil, err
			}
		}
	}
}

// readLine reads one line from stdin as the secret. A trailing CR is
// dropped.
func (e *env) readLine() (*enclave.Enclave, error) {
	var b enclave.Builder
	cr := false
	for {
		c, err := e.in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && (b.Len() > 0 || cr) {
				break
			}
			b.Reset()
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no secret on stdin")
			}
			return nil, err
		}
		if c == '\n' {
			break
		}
		if cr {
			_ = b.WriteByte('\r')
		}
		cr = c == '\r'
		if !cr {
			_ = b.WriteByte(c)
		}
	}
	return b.Seal(), nil
}
