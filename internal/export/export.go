// Package export hands a derived key to an external program on its standard
// input.
package export

import (
	"context"
	"errors"
	"fmt"
	"github.com/hashicorp/go-hclog"
	"github.com/tigerwill90/derive/internal/enclave"
	"io"
	"os/exec"
	"strings"
	"time"
)

const DefaultTimeout = time.Second

var ErrTimeout = errors.New("export program did not exit in time")

type Exporter struct {
	argv    []string
	timeout time.Duration
	output  io.Writer
	logger  hclog.Logger
}

type Option func(e *Exporter)

func WithTimeout(timeout time.Duration) Option {
	return func(e *Exporter) {
		e.timeout = timeout
	}
}

// WithOutput sets where the program's stdout and stderr go.
func WithOutput(w io.Writer) Option {
	return func(e *Exporter) {
		e.output = w
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

func New(argv []string, opts ...Option) *Exporter {
	e := &Exporter{
		argv:    argv,
		timeout: DefaultTimeout,
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) Enabled() bool {
	return len(e.argv) > 0
}

func (e *Exporter) String() string {
	return strings.Join(e.argv, " ")
}

// Export writes key to a new instance of the program, closes its stdin and
// waits for it to exit.
func (e *Exporter) Export(ctx context.Context, key *enclave.Enclave) error {
	if !e.Enabled() {
		return errors.New("no export program configured")
	}
	if key.Empty() {
		return errors.New("no key to export")
	}

	cmd := exec.Command(e.argv[0], e.argv[1:]...)
	cmd.Stdout = e.output
	cmd.Stderr = e.output
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.argv[0], err)
	}
	e.logger.Debug("export program started", "program", e.argv[0], "pid", cmd.Process.Pid)

	p, destroy := key.Open()
	_, werr := stdin.Write(p)
	destroy()
	if cerr := stdin.Close(); werr == nil {
		werr = cerr
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("export to %s failed: %w", e.argv[0], err)
		}
		if werr != nil {
			return fmt.Errorf("export to %s failed: %w", e.argv[0], werr)
		}
		e.logger.Debug("export done", "program", e.argv[0])
		return nil
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("%w: %s", ErrTimeout, e.timeout)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}
