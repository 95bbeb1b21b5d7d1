package command

import (
	"errors"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/tigerwill90/derive/storage"
	"github.com/urfave/cli/v2"
)

type verifyCmd struct {
	*env
}

func newVerifyCommand(e *env) *verifyCmd {
	return &verifyCmd{env: e}
}

func (v *verifyCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		defer memguard.Purge()

		encoded := cc.Args().First()
		if encoded == "" {
			var err error
			if encoded, err = v.loadHash(); err != nil {
				return err
			}
		}
		hash, err := kdf.ParseHash(encoded)
		if err != nil {
			return fmt.Errorf("invalid hash: %w", err)
		}

		secret, err := v.readSecret(cc.Context, "Password: ")
		if err != nil {
			return err
		}
		p, destroy := secret.Open()
		defer destroy()
		if err := hash.Verify(p); err != nil {
			return err
		}
		v.ui.Successf("password valid\n")
		return nil
	}
}

func (e *env) loadHash() (string, error) {
	store, err := e.openStore()
	if err != nil {
		return "", err
	}
	defer store.Close()

	r, err := store.Load()
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return "", errors.New("no saved hash, pass one as argument")
		}
		return "", err
	}
	return r.Hash, nil
}
