package command

import (
	"context"
	"errors"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/tigerwill90/derive/graph"
	"github.com/tigerwill90/derive/internal/enclave"
	"github.com/tigerwill90/derive/internal/export"
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/urfave/cli/v2"
	"time"
)

type keyCmd struct {
	*env
}

func newKeyCommand(e *env) *keyCmd {
	return &keyCmd{env: e}
}

func (k *keyCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		defer memguard.Purge()

		algorithm, err := kdf.ParseAlgorithm(cc.String(algorithmFlag))
		if err != nil {
			return err
		}

		exporter := k.exporter(cc.Args().Slice())
		if cc.Bool(exportFlag) && !exporter.Enabled() {
			return errors.New("--export requires a program after --")
		}

		secret, err := k.readSecret(cc.Context, "Password: ")
		if err != nil {
			return err
		}
		if err := k.selfCheck(secret); err != nil {
			return err
		}

		start := time.Now()
		key, err := k.derive(cc.Context, algorithm, secret, cc.String(saltFlag))
		if err != nil {
			return err
		}
		k.logger.Debug("key derived", "algorithm", algorithm, "elapsed", formatDuration(time.Since(start)))

		if cc.Bool(revealFlag) {
			p, destroy := key.Open()
			k.ui.Infof("%s\n", p)
			destroy()
		} else {
			k.ui.Infof("%s (%s, use --reveal to print)\n", mask(key.Size()), algorithm.Label())
		}

		if cc.Bool(exportFlag) {
			if err := exporter.Export(cc.Context, key); err != nil {
				return err
			}
			k.ui.Successf("key exported to %s\n", exporter)
			k.notifyf("Key exported", "The %s key was sent to %s", algorithm, exporter)
		}
		return nil
	}
}

// derive runs a one-shot graph over the inputs and returns its key.
func (k *keyCmd) derive(ctx context.Context, algorithm kdf.Algorithm, secret *enclave.Enclave, salt string) (*enclave.Enclave, error) {
	g := k.newGraph(algorithm)
	errc := make(chan error, 1)
	go func() {
		errc <- g.Run(ctx)
	}()

	g.Password.Write(secret)
	g.Salt.Write(salt)
	settleErr := g.Settle(ctx)
	key, v := g.Key.Load(), g.SaltValidation.Load()
	g.Close()

	if err := <-errc; err != nil {
		return nil, err
	}
	if settleErr != nil {
		return nil, settleErr
	}
	if v.Status == graph.Invalid {
		return nil, fmt.Errorf("invalid salt: %w", v.Err)
	}
	return key, nil
}

func (e *env) selfCheck(secret *enclave.Enclave) error {
	if e.config.SelfCheck == nil {
		return nil
	}
	p, destroy := secret.Open()
	defer destroy()
	if err := e.config.SelfCheck.Run(p); err != nil {
		return err
	}
	e.logger.Debug("self-check passed")
	return nil
}

func (e *env) exporter(argv []string) *export.Exporter {
	return export.New(argv, export.WithOutput(e.ui.stderr), export.WithLogger(e.logger.Named("export")))
}
