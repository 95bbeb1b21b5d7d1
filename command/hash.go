package command

import (
	"crypto/rand"
	"github.com/awnumar/memguard"
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/tigerwill90/derive/storage"
	"github.com/urfave/cli/v2"
)

type hashCmd struct {
	*env
}

func newHashCommand(e *env) *hashCmd {
	return &hashCmd{env: e}
}

func (h *hashCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		defer memguard.Purge()

		secret, err := h.readSecret(cc.Context, "Password: ")
		if err != nil {
			return err
		}
		if err := h.selfCheck(secret); err != nil {
			return err
		}

		p, destroy := secret.Open()
		hash, err := kdf.NewHash(p, h.params(), rand.Reader)
		destroy()
		if err != nil {
			return err
		}
		h.ui.Infof("%s\n", hash)

		if !cc.Bool(saveFlag) {
			return nil
		}
		store, err := h.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(&storage.Record{Hash: hash.String()}); err != nil {
			return err
		}
		h.ui.Successf("hash saved to %s\n", store.Path())
		return nil
	}
}
