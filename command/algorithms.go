package command

import (
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/urfave/cli/v2"
)

type algorithmsCmd struct {
	*env
}

func newAlgorithmsCommand(e *env) *algorithmsCmd {
	return &algorithmsCmd{env: e}
}

func (a *algorithmsCmd) run() cli.ActionFunc {
	return func(cc *cli.Context) error {
		for _, algorithm := range kdf.Algorithms() {
			a.ui.Infof("%-12s %s\n", algorithm, algorithm.Label())
		}
		return nil
	}
}
