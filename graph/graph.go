package graph

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"
	"github.com/tigerwill90/derive/internal/enclave"
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/tigerwill90/derive/internal/reactive"
	"io"
	"sync"
)

// Deriver computes a key for one algorithm.
type Deriver interface {
	Derive(a kdf.Algorithm, secret, salt []byte) ([]byte, error)
}

type Option func(g *Graph)

func WithDeriver(d Deriver) Option {
	return func(g *Graph) {
		g.deriver = d
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithParams sets the Argon2 parameters of newly generated hashes.
func WithParams(p kdf.Params) Option {
	return func(g *Graph) {
		g.params = p
	}
}

// WithRand sets the entropy source used for hash salts.
func WithRand(r io.Reader) Option {
	return func(g *Graph) {
		g.rand = r
	}
}

// Graph keeps the derived fields consistent with the input fields. Inputs
// are written by the caller, outputs only by the graph.
type Graph struct {
	Password     *reactive.Channel[*enclave.Enclave]
	ExpectedHash *reactive.Channel[string]
	Algorithm    *reactive.Channel[kdf.Algorithm]
	Salt         *reactive.Channel[string]

	Hash                   *reactive.Channel[string]
	PasswordValidation     *reactive.Channel[Validation]
	ExpectedHashValidation *reactive.Channel[Validation]
	SaltValidation         *reactive.Channel[Validation]
	Key                    *reactive.Channel[*enclave.Enclave]

	id      ulid.ULID
	logger  hclog.Logger
	deriver Deriver
	params  kdf.Params
	rand    io.Reader

	mu      sync.Mutex
	group   *reactive.Group
	started chan struct{}
	ran     bool
}

func New(algorithm kdf.Algorithm, opts ...Option) *Graph {
	g := &Graph{
		Password:               reactive.NewChannel(enclave.New(nil)),
		ExpectedHash:           reactive.NewChannel(""),
		Algorithm:              reactive.NewChannel(algorithm),
		Salt:                   reactive.NewChannel(""),
		Hash:                   reactive.NewChannel(""),
		PasswordValidation:     reactive.NewChannel(Validation{}),
		ExpectedHashValidation: reactive.NewChannel(Validation{}),
		SaltValidation:         reactive.NewChannel(Validation{}),
		Key:                    reactive.NewChannel[*enclave.Enclave](nil),
		id:                     ulid.MustNew(ulid.Now(), rand.Reader),
		logger:                 hclog.NewNullLogger(),
		deriver:                kdf.NewDeriver(kdf.DefaultParams, kdf.DefaultS2KCount),
		params:                 kdf.DefaultParams,
		rand:                   rand.Reader,
		started:                make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("graph", g.id.String())
	return g
}

func (g *Graph) ID() ulid.ULID {
	return g.id
}

// Run recomputes the outputs until every input is closed or a derivation
// fails. The outputs are closed when Run returns. A graph runs only once.
func (g *Graph) Run(ctx context.Context) error {
	g.mu.Lock()
	if g.ran {
		g.mu.Unlock()
		return errors.New("graph already ran")
	}
	g.ran = true
	group := reactive.NewGroup(ctx)
	g.group = group
	g.mu.Unlock()

	defer g.closeOutputs()

	group.Go("hash", func(ctx context.Context) error {
		return reactive.Watch1(ctx, g.Password, g.recomputeHash)
	})
	group.Go("validation", func(ctx context.Context) error {
		return reactive.Watch2(ctx, g.Password, g.ExpectedHash, g.recomputeValidation)
	})
	group.Go("key", func(ctx context.Context) error {
		return reactive.Watch3(ctx, g.Password, g.Algorithm, g.Salt, g.recomputeKey)
	})
	close(g.started)
	g.logger.Debug("graph started")

	if err := group.Wait(); err != nil {
		g.logger.Error("graph failed", "error", err)
		return err
	}
	g.logger.Debug("graph stopped")
	return nil
}

// Settle blocks until the running graph has processed every pending input.
func (g *Graph) Settle(ctx context.Context) error {
	select {
	case <-g.started:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.group.Settle(ctx)
}

// Close closes every input, which ends Run without error once the pending
// changes are processed.
func (g *Graph) Close() {
	g.Password.Close()
	g.ExpectedHash.Close()
	g.Algorithm.Close()
	g.Salt.Close()
}

func (g *Graph) closeOutputs() {
	g.Hash.Close()
	g.PasswordValidation.Close()
	g.ExpectedHashValidation.Close()
	g.SaltValidation.Close()
	g.Key.Close()
}

func (g *Graph) recomputeHash(password *enclave.Enclave) error {
	pw, destroy := password.Open()
	defer destroy()

	h, err := kdf.NewHash(pw, g.params, g.rand)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	g.Hash.Write(h.String())
	return nil
}

func (g *Graph) recomputeValidation(password *enclave.Enclave, expected string) error {
	if expected == "" {
		g.PasswordValidation.Write(Validation{})
		g.ExpectedHashValidation.Write(Validation{})
		return nil
	}

	h, err := kdf.ParseHash(expected)
	if err != nil {
		g.PasswordValidation.Write(Validation{})
		g.ExpectedHashValidation.Write(validOf(err))
		return nil
	}

	pw, destroy := password.Open()
	defer destroy()
	g.PasswordValidation.Write(validOf(h.Verify(pw)))
	g.ExpectedHashValidation.Write(validOf(nil))
	return nil
}

func (g *Graph) recomputeKey(password *enclave.Enclave, algorithm kdf.Algorithm, salt string) error {
	pw, destroy := password.Open()
	defer destroy()

	key, err := g.deriver.Derive(algorithm, pw, []byte(salt))
	if err != nil {
		if kdf.IsSaltError(err) {
			g.logger.Debug("salt rejected", "algorithm", algorithm, "error", err)
			g.SaltValidation.Write(validOf(err))
			g.Key.Write(nil)
			return nil
		}
		return fmt.Errorf("failed to derive %s key: %w", algorithm, err)
	}

	g.SaltValidation.Write(validOf(nil))
	g.Key.Write(enclave.New(key))
	return nil
}
