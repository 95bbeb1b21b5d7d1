package command

import (
	"errors"
	"github.com/docker/go-units"
	"github.com/tigerwill90/derive/storage"
	"github.com/urfave/cli/v2"
)

type statusCmd struct {
	*env
}

func newStatusCommand(e *env) *statusCmd {
	return &statusCmd{env: e}
}

func (s *statusCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		size, err := store.Size()
		if err != nil {
			return err
		}

		saved := true
		if _, err := store.Load(); err != nil {
			if !errors.Is(err, storage.ErrRecordNotFound) {
				return err
			}
			saved = false
		}

		params := s.params()
		s.ui.Infof("Derive status\n")
		s.ui.Infof("Store             : %s\n", s.config.Store)
		s.ui.Infof("Store Path        : %s\n", store.Path())
		s.ui.Infof("Store Size        : %s\n", units.HumanSize(float64(size)))
		s.ui.Infof("Hash saved        : %t\n", saved)
		s.ui.Infof("Argon2 memory     : %s\n", units.BytesSize(float64(params.Memory)*1024))
		s.ui.Infof("Argon2 iterations : %d\n", params.Time)
		s.ui.Infof("Argon2 lanes      : %d\n", params.Threads)
		s.ui.Infof("S2K count         : %d\n", s.config.S2K.Count)
		s.ui.Infof("Self-check        : %t\n", s.config.SelfCheck != nil)
		return nil
	}
}
