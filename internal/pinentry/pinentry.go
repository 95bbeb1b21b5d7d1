// Package pinentry reads a secret from a pinentry program over the Assuan
// protocol.
package pinentry

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/tigerwill90/derive/internal/enclave"
	"io"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultTimeout = 2 * time.Minute
	// maxLineSize is the Assuan line limit.
	maxLineSize = 1000
)

var ErrNoPin = errors.New("pinentry closed without a pin")

type options struct {
	timeout     time.Duration
	description string
	prompt      string
}

type Option func(o *options)

func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func WithDescription(desc string) Option {
	return func(o *options) {
		o.description = desc
	}
}

func WithPrompt(prompt string) Option {
	return func(o *options) {
		o.prompt = prompt
	}
}

// GetPin runs the pinentry program argv and returns the entered secret.
func GetPin(ctx context.Context, argv []string, opts ...Option) (*enclave.Enclave, error) {
	if len(argv) == 0 {
		return nil, errors.New("missing pinentry program")
	}
	o := &options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start pinentry: %w", err)
	}

	pin, err := exchange(stdin, stdout, o)
	stdin.Close()
	if err != nil {
		_ = cmd.Wait()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pinentry: %w", ctx.Err())
		}
		return nil, fmt.Errorf("pinentry: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pinentry exited with error: %w", err)
	}
	return pin, nil
}

func exchange(w io.Writer, r io.Reader, o *options) (*enclave.Enclave, error) {
	var req bytes.Buffer
	if o.description != "" {
		req.WriteString("SETDESC " + escape(o.description) + "\n")
	}
	if o.prompt != "" {
		req.WriteString("SETPROMPT " + escape(o.prompt) + "\n")
	}
	req.WriteString("GETPIN\n")
	if _, err := w.Write(req.Bytes()); err != nil {
		return nil, err
	}

	pin, err := readPin(r)
	if err != nil {
		return nil, err
	}

	if _, err := io.WriteString(w, "BYE\n"); err != nil {
		return nil, err
	}
	return pin, nil
}

// readPin reads responses until the data line. The line buffer is owned here
// so it can be wiped.
func readPin(r io.Reader) (*enclave.Enclave, error) {
	buf := make([]byte, maxLineSize+1)
	defer memguard.WipeBytes(buf)

	sc := bufio.NewScanner(r)
	sc.Buffer(buf, len(buf))
	for sc.Scan() {
		line := sc.Bytes()
		switch {
		case bytes.HasPrefix(line, []byte("D ")):
			return decode(line[2:])
		case bytes.HasPrefix(line, []byte("ERR")):
			return nil, fmt.Errorf("pinentry error: %s", strings.TrimSpace(string(line[3:])))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoPin
}

// decode undoes the Assuan percent escaping of a data line.
func decode(data []byte) (*enclave.Enclave, error) {
	var b enclave.Builder
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '%' {
			_ = b.WriteByte(c)
			continue
		}
		if i+2 >= len(data) {
			b.Reset()
			return nil, errors.New("truncated escape in data line")
		}
		hi, ok1 := unhex(data[i+1])
		lo, ok2 := unhex(data[i+2])
		if !ok1 || !ok2 {
			b.Reset()
			return nil, errors.New("invalid escape in data line")
		}
		_ = b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.Seal(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

var escaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

func escape(s string) string {
	return escaper.Replace(s)
}
