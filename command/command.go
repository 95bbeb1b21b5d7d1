package command

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/docker/go-units"
	"github.com/hashicorp/go-hclog"
	"github.com/tigerwill90/derive/config"
	"github.com/tigerwill90/derive/graph"
	"github.com/tigerwill90/derive/internal/kdf"
	"github.com/tigerwill90/derive/storage"
	"github.com/urfave/cli/v2"
	"io"
	"os"
	"strings"
)

const (
	configFlag      = "config"
	dataDirFlag     = "data-dir"
	storeFlag       = "store"
	logLevelFlag    = "log-level"
	memoryFlag      = "memory"
	iterationsFlag  = "iterations"
	parallelismFlag = "parallelism"
	s2kCountFlag    = "s2k-count"
	pinentryFlag    = "pinentry"
	notifyFlag      = "notify"

	algorithmFlag   = "algorithm"
	saltFlag        = "salt"
	revealFlag      = "reveal"
	exportFlag      = "export"
	saveFlag        = "save"
	editHashFlag    = "edit-hash"
	idleTimeoutFlag = "idle-timeout"
)

const passwordEnv = "DERIVE_PASSWORD"

// env is the state shared by every command, set up before the action runs.
type env struct {
	ui       *ui
	in       *bufio.Reader
	stdin    io.Reader
	logger   hclog.Logger
	config   *config.Config
	pinentry []string
	notify   bool
}

func Run(args []string) int {
	e := newEnv(os.Stdin, os.Stdout, os.Stderr)
	if err := e.app().Run(args); err != nil {
		e.ui.Errorf("%s\n", err)
		return 1
	}
	return 0
}

func newEnv(stdin io.Reader, stdout, stderr io.Writer) *env {
	return &env{
		ui:     newUi(stdout, stderr),
		in:     bufio.NewReader(stdin),
		stdin:  stdin,
		logger: hclog.NewNullLogger(),
	}
}

func (e *env) app() *cli.App {
	return &cli.App{
		Name:        "derive",
		Usage:       "derive keys and hashes from a secret",
		Description: "Derive Argon2id and OpenPGP S2K keys, PHC hashes and validations from a single secret",
		Version:     "v0.0.0",
		Reader:      e.stdin,
		Writer:      e.ui.stdout,
		ErrWriter:   e.ui.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"DERIVE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    dataDirFlag,
				Usage:   "directory holding the saved hash",
				EnvVars: []string{"DERIVE_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:  storeFlag,
				Usage: "storage backend (file or badger)",
				Value: storage.KindFile,
			},
			&cli.StringFlag{
				Name:  logLevelFlag,
				Value: "info",
			},
			&cli.StringFlag{
				Name:  memoryFlag,
				Usage: "argon2 memory cost (e.g. 19MiB)",
				Value: units.BytesSize(float64(kdf.DefaultParams.Memory) * 1024),
			},
			&cli.UintFlag{
				Name:  iterationsFlag,
				Usage: "argon2 time cost",
				Value: uint(kdf.DefaultParams.Time),
			},
			&cli.UintFlag{
				Name:  parallelismFlag,
				Usage: "argon2 lanes",
				Value: uint(kdf.DefaultParams.Threads),
			},
			&cli.IntFlag{
				Name:  s2kCountFlag,
				Usage: "number of bytes hashed by the S2K algorithm",
				Value: kdf.DefaultS2KCount,
			},
			&cli.StringFlag{
				Name:    pinentryFlag,
				Usage:   "read the secret from this pinentry program (e.g. \"pinentry-curses --ttyname /dev/tty\")",
				EnvVars: []string{"DERIVE_PINENTRY"},
			},
			&cli.BoolFlag{
				Name:  notifyFlag,
				Usage: "send a desktop notification after copy and export",
			},
		},
		Before: e.setup,
		Commands: []*cli.Command{
			{
				Name:   "algorithms",
				Usage:  "list the supported algorithms",
				Action: newAlgorithmsCommand(e).run(),
			},
			{
				Name:      "key",
				Aliases:   []string{"k"},
				Usage:     "derive a key from the secret",
				ArgsUsage: "[-- export program args...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    algorithmFlag,
						Aliases: []string{"a"},
						Value:   kdf.Argon2id256.String(),
					},
					&cli.StringFlag{
						Name:     saltFlag,
						Aliases:  []string{"s"},
						Required: true,
					},
					&cli.BoolFlag{
						Name: revealFlag,
					},
					&cli.BoolFlag{
						Name:  exportFlag,
						Usage: "pipe the key to the program given after --",
					},
				},
				Action: newKeyCommand(e).run(),
			},
			{
				Name:  "hash",
				Usage: "hash the secret into a PHC string",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  saveFlag,
						Usage: "persist the hash",
					},
				},
				Action: newHashCommand(e).run(),
			},
			{
				Name:      "verify",
				Usage:     "verify the secret against a hash",
				ArgsUsage: "[hash]",
				Action:    newVerifyCommand(e).run(),
			},
			{
				Name:   "selfcheck",
				Usage:  "run the configured S2K self-check",
				Action: newSelfCheckCommand(e).run(),
			},
			{
				Name:   "status",
				Usage:  "show the configuration and storage state",
				Action: newStatusCommand(e).run(),
			},
			{
				Name:      "session",
				Usage:     "edit the inputs interactively and watch the derived fields",
				ArgsUsage: "[-- export program args...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  editHashFlag,
						Usage: "allow editing the expected hash instead of loading it",
					},
					&cli.DurationFlag{
						Name:  idleTimeoutFlag,
						Value: defaultIdleTimeout,
					},
				},
				Action: newSessionCommand(e).run(),
			},
		},
	}
}

func (e *env) setup(cc *cli.Context) error {
	path := cc.String(configFlag)
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	c, err := config.Load(path, explicit)
	if err != nil {
		return err
	}

	if cc.IsSet(storeFlag) {
		c.Store = cc.String(storeFlag)
	}
	if cc.IsSet(dataDirFlag) {
		c.DataDir = cc.String(dataDirFlag)
	}
	if cc.IsSet(logLevelFlag) {
		c.LogLevel = cc.String(logLevelFlag)
	}
	if cc.IsSet(memoryFlag) {
		size, err := units.RAMInBytes(cc.String(memoryFlag))
		if err != nil {
			return fmt.Errorf("invalid memory: %w", err)
		}
		if size < 1024 || size/1024 > 1<<32-1 {
			return fmt.Errorf("invalid memory: %s", units.BytesSize(float64(size)))
		}
		c.Argon2.Memory = uint32(size / 1024)
	}
	if cc.IsSet(iterationsFlag) {
		c.Argon2.Time = uint32(cc.Uint(iterationsFlag))
	}
	if cc.IsSet(parallelismFlag) {
		p := cc.Uint(parallelismFlag)
		if p > 255 {
			return errors.New("invalid parallelism: at most 255 lanes")
		}
		c.Argon2.Threads = uint8(p)
	}
	if cc.IsSet(s2kCountFlag) {
		c.S2K.Count = cc.Int(s2kCountFlag)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if c.DataDir == "" {
		if c.DataDir, err = storage.DefaultDataDir(); err != nil {
			return err
		}
	}

	level := hclog.LevelFromString(c.LogLevel)
	if level == hclog.NoLevel {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	e.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "derive",
		Level:  level,
		Output: e.ui.stderr,
	})
	e.config = c
	e.pinentry = strings.Fields(cc.String(pinentryFlag))
	e.notify = cc.Bool(notifyFlag)
	e.logger.Debug("configuration loaded", "path", path, "store", c.Store, "argon2", c.Argon2.Params().String())
	return nil
}

func (e *env) params() kdf.Params {
	return e.config.Argon2.Params()
}

func (e *env) deriver() *kdf.Deriver {
	return kdf.NewDeriver(e.params(), e.config.S2K.Count)
}

func (e *env) newGraph(algorithm kdf.Algorithm) *graph.Graph {
	return graph.New(
		algorithm,
		graph.WithDeriver(e.deriver()),
		graph.WithParams(e.params()),
		graph.WithLogger(e.logger.Named("graph")),
	)
}

func (e *env) openStore() (storage.Store, error) {
	return storage.Open(&storage.Config{
		Kind:       e.config.Store,
		DataDir:    e.config.DataDir,
		GcInterval: storage.MinGcDuration,
	}, e.logger.Named("store"))
}
