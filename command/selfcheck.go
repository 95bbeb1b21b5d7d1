package command

import (
	"errors"
	"github.com/awnumar/memguard"
	"github.com/urfave/cli/v2"
)

type selfCheckCmd struct {
	*env
}

func newSelfCheckCommand(e *env) *selfCheckCmd {
	return &selfCheckCmd{env: e}
}

func (s *selfCheckCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		defer memguard.Purge()
		if s.config.SelfCheck == nil {
			return errors.New("no self-check configured")
		}
		secret, err := s.readSecret(cc.Context, "Password: ")
		if err != nil {
			return err
		}
		if err := s.selfCheck(secret); err != nil {
			return err
		}
		s.ui.Successf("self-check passed\n")
		return nil
	}
}
