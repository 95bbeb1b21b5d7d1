package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/tigerwill90/derive/graph"
	"github.com/tigerwill90/derive/internal/enclave"
	"github.com/tigerwill90/derive/internal/export"
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/tigerwill90/derive/storage"
	"github.com/urfave/cli/v2"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const defaultIdleTimeout = 60 * time.Second

const sessionHelp = `Commands:
  password [value]   set the password (prompted when no value is given)
  clear              clear the password
  expected <hash>    set the expected hash (--edit-hash)
  load               load the saved hash as expected hash (--edit-hash)
  save               save the current hash (--edit-hash)
  algorithm <name>   select the key algorithm
  salt <value>       set the key salt
  show               print every field
  reveal | hide      show or mask the key
  copy               copy the key to the clipboard
  export             pipe the key to the export program
  help               print this help
  quit               leave the session
`

type sessionCmd struct {
	*env
}

func newSessionCommand(e *env) *sessionCmd {
	return &sessionCmd{env: e}
}

func (s *sessionCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		defer memguard.Purge()

		ctx, stop := signal.NotifyContext(cc.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sess := &session{
			env:      s.env,
			g:        s.newGraph(kdf.Argon2id256),
			store:    store,
			exporter: s.exporter(cc.Args().Slice()),
			editHash: cc.Bool(editHashFlag),
			tty:      s.interactive(),
			lines:    newLineReader(s.in),
		}
		defer sess.lines.close()

		timeout := cc.Duration(idleTimeoutFlag)
		if timeout <= 0 {
			timeout = defaultIdleTimeout
		}
		return sess.run(ctx, timeout)
	}
}

type session struct {
	*env
	g        *graph.Graph
	store    storage.Store
	exporter *export.Exporter
	lines    *lineReader
	editHash bool
	tty      bool
	reveal   bool
}

func (s *session) run(ctx context.Context, timeout time.Duration) error {
	if !s.editHash {
		if err := s.load(); err != nil {
			return err
		}
	}
	if s.hasSecretSource() {
		secret, err := s.readSecret(ctx, "Password: ")
		if err != nil {
			return err
		}
		if err := s.selfCheck(secret); err != nil {
			return err
		}
		s.g.Password.Write(secret)
	}

	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = s.g.Run(ctx)
		close(done)
	}()
	s.logger.Debug("session started", "graph", s.g.ID().String(), "edit_hash", s.editHash)

	err := s.loop(ctx, timeout, done, &runErr)
	s.g.Close()
	<-done
	if err == nil {
		err = runErr
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// interrupted
		return nil
	}
	return err
}

func (s *session) loop(ctx context.Context, timeout time.Duration, done <-chan struct{}, runErr *error) error {
	if err := s.show(ctx); err != nil {
		return err
	}

	idle := time.NewTimer(timeout)
	defer idle.Stop()

	for {
		if s.tty {
			s.ui.Infof("> ")
		}
		s.lines.request()

		select {
		case <-done:
			if *runErr == nil {
				return errors.New("graph stopped")
			}
			return *runErr
		case <-ctx.Done():
			return ctx.Err()
		case <-idle.C:
			s.logger.Debug("idle timeout, locking")
			s.ui.Warnf("idle for %s, password cleared\n", timeout)
			s.lock()
			if err := s.show(ctx); err != nil {
				return err
			}
		case res := <-s.lines.resp:
			s.lines.pending = false
			if res.line == nil && res.err != nil {
				if errors.Is(res.err, io.EOF) {
					return nil
				}
				return res.err
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(timeout)

			quit, err := s.exec(ctx, res.line)
			memguard.WipeBytes(res.line)
			if err != nil || quit {
				return err
			}
		}
	}
}

// exec runs one command line. Mistakes are reported to the user, the
// returned error is fatal to the session.
func (s *session) exec(ctx context.Context, line []byte) (quit bool, err error) {
	line = bytes.TrimRight(line, "\r\n")
	name, arg, _ := bytes.Cut(line, []byte(" "))

	switch string(name) {
	case "":
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		s.ui.Infof(sessionHelp)
		return false, nil
	case "show":
	case "password", "pw":
		if len(arg) > 0 {
			buf := make([]byte, len(arg))
			copy(buf, arg)
			s.g.Password.Write(enclave.New(buf))
			break
		}
		secret, err := s.promptSecret(ctx)
		if err != nil {
			if errors.Is(err, errCanceled) {
				s.ui.Warnf("password unchanged\n")
				return false, nil
			}
			return false, err
		}
		s.g.Password.Write(secret)
	case "clear":
		s.lock()
	case "expected":
		if !s.requireEditHash() {
			return false, nil
		}
		s.g.ExpectedHash.Write(string(bytes.TrimSpace(arg)))
	case "load":
		if !s.requireEditHash() {
			return false, nil
		}
		if err := s.load(); err != nil {
			return false, err
		}
	case "save":
		if !s.requireEditHash() {
			return false, nil
		}
		if err := s.save(ctx); err != nil {
			return false, err
		}
		return false, nil
	case "algorithm", "alg":
		algorithm, err := kdf.ParseAlgorithm(string(bytes.TrimSpace(arg)))
		if err != nil {
			s.ui.Errorf("%s, one of: %s\n", err, algorithmNames())
			return false, nil
		}
		s.g.Algorithm.Write(algorithm)
	case "salt":
		s.g.Salt.Write(string(arg))
	case "reveal":
		s.reveal = true
	case "hide":
		s.reveal = false
	case "copy":
		return false, s.copyKey(ctx)
	case "export":
		return false, s.export(ctx)
	default:
		s.ui.Errorf("unknown command %q, type help\n", name)
		return false, nil
	}

	return false, s.show(ctx)
}

func (s *session) requireEditHash() bool {
	if !s.editHash {
		s.ui.Errorf("the expected hash is read-only, restart with --%s\n", editHashFlag)
	}
	return s.editHash
}

// promptSecret reads a new password from the terminal, or from the next
// input line when stdin is not a terminal.
func (s *session) promptSecret(ctx context.Context) (*enclave.Enclave, error) {
	if s.tty || s.hasSecretSource() {
		secret, err := s.readSecret(ctx, "Password: ")
		if err != nil {
			return nil, err
		}
		if err := s.selfCheck(secret); err != nil {
			return nil, err
		}
		return secret, nil
	}

	line, err := s.lines.next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errCanceled
		}
		return nil, err
	}
	defer memguard.WipeBytes(line)
	secret := enclave.New(append([]byte(nil), bytes.TrimRight(line, "\r\n")...))
	if err := s.selfCheck(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// lock clears the password and masks the key.
func (s *session) lock() {
	s.g.Password.Write(enclave.New(nil))
	s.reveal = false
}

func (s *session) load() error {
	r, err := s.store.Load()
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			s.logger.Debug("no saved hash")
			s.g.ExpectedHash.Write("")
			return nil
		}
		return err
	}
	s.g.ExpectedHash.Write(r.Hash)
	return nil
}

func (s *session) save(ctx context.Context) error {
	if err := s.g.Settle(ctx); err != nil {
		return err
	}
	hash := s.g.Hash.Load()
	if hash == "" {
		s.ui.Errorf("no hash to save\n")
		return nil
	}
	if err := s.store.Save(&storage.Record{Hash: hash}); err != nil {
		return err
	}
	s.ui.Successf("hash saved\n")
	return nil
}

func (s *session) copyKey(ctx context.Context) error {
	if err := s.g.Settle(ctx); err != nil {
		return err
	}
	key := s.g.Key.Load()
	if key == nil {
		s.ui.Errorf("no key to copy\n")
		return nil
	}
	if err := copyOSC52(s.ui.stdout, key); err != nil {
		return err
	}
	s.ui.Successf("key copied to clipboard\n")
	s.notifyf("Key copied", "The derived key is in the clipboard")
	return nil
}

func (s *session) export(ctx context.Context) error {
	if !s.exporter.Enabled() {
		s.ui.Errorf("no export program, pass one after --\n")
		return nil
	}
	if err := s.g.Settle(ctx); err != nil {
		return err
	}
	key := s.g.Key.Load()
	if key == nil {
		s.ui.Errorf("no key to export\n")
		return nil
	}
	if err := s.exporter.Export(ctx, key); err != nil {
		return err
	}
	s.ui.Successf("key exported to %s\n", s.exporter)
	s.notifyf("Key exported", "The derived key was sent to %s", s.exporter)
	return nil
}

// show waits for the graph to catch up and prints every field.
func (s *session) show(ctx context.Context) error {
	if err := s.g.Settle(ctx); err != nil {
		return err
	}

	g := s.g
	s.ui.Field("Password", mask(g.Password.Load().Size()), g.PasswordValidation.Load())
	s.ui.Field("Expected hash", g.ExpectedHash.Load(), g.ExpectedHashValidation.Load())
	s.ui.Field("Hash", g.Hash.Load(), graph.Validation{})
	algorithm := g.Algorithm.Load()
	s.ui.Field("Algorithm", fmt.Sprintf("%s (%s)", algorithm, algorithm.Label()), graph.Validation{})
	s.ui.Field("Salt", g.Salt.Load(), g.SaltValidation.Load())

	key := g.Key.Load()
	if key == nil || !s.reveal {
		s.ui.Field("Key", mask(key.Size()), graph.Validation{})
		return nil
	}
	p, destroy := key.Open()
	defer destroy()
	s.ui.Infof("%-14s: %s\n", "Key", p)
	return nil
}

func (e *env) hasSecretSource() bool {
	if len(e.pinentry) > 0 {
		return true
	}
	_, ok := os.LookupEnv(passwordEnv)
	return ok
}

func algorithmNames() string {
	var names []string
	for _, a := range kdf.Algorithms() {
		names = append(names, a.String())
	}
	return strings.Join(names, ", ")
}

type lineResult struct {
	line []byte
	err  error
}

// lineReader reads stdin one line at a time, only when asked, so nothing
// else competes for the terminal while a command runs.
type lineReader struct {
	r       *bufio.Reader
	req     chan struct{}
	resp    chan lineResult
	pending bool
}

func newLineReader(r *bufio.Reader) *lineReader {
	l := &lineReader{
		r:    r,
		req:  make(chan struct{}),
		resp: make(chan lineResult, 1),
	}
	go l.loop()
	return l
}

func (l *lineReader) loop() {
	for range l.req {
		line, err := l.r.ReadBytes('\n')
		if len(line) == 0 {
			line = nil
		}
		l.resp <- lineResult{line: line, err: err}
	}
}

// request starts reading the next line unless a read is already pending.
func (l *lineReader) request() {
	if l.pending {
		return
	}
	l.req <- struct{}{}
	l.pending = true
}

// next reads a line synchronously.
func (l *lineReader) next(ctx context.Context) ([]byte, error) {
	l.request()
	select {
	case res := <-l.resp:
		l.pending = false
		if res.line == nil && res.err != nil {
			return nil, res.err
		}
		return res.line, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *lineReader) close() {
	close(l.req)
}
