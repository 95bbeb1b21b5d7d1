package config

import (
	"errors"
	"fmt"
	"github.com/tigerwill90/derive/internal/kdf"
	"gopkg.in/yaml.v3"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const fileName = "config.yaml"

type Config struct {
	Store     string     `yaml:"store"`
	DataDir   string     `yaml:"data_dir"`
	LogLevel  string     `yaml:"log_level"`
	Argon2    Argon2     `yaml:"argon2"`
	S2K       S2K        `yaml:"s2k"`
	SelfCheck *SelfCheck `yaml:"selfcheck"`
}

// Argon2 holds the Argon2id cost. Memory is in KiB.
type Argon2 struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"`
	Threads uint8  `yaml:"threads"`
}

func (a Argon2) Params() kdf.Params {
	return kdf.Params{Time: a.Time, Memory: a.Memory, Threads: a.Threads}
}

type S2K struct {
	Count int `yaml:"count"`
}

func Default() *Config {
	return &Config{
		Store:    "file",
		LogLevel: "info",
		Argon2: Argon2{
			Time:    kdf.DefaultParams.Time,
			Memory:  kdf.DefaultParams.Memory,
			Threads: kdf.DefaultParams.Threads,
		},
		S2K: S2K{Count: kdf.DefaultS2KCount},
	}
}

// DefaultPath returns the config file location in the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "derive", fileName), nil
}

// Load reads the config file at path over the defaults. A missing file is
// only an error when the path was given explicitly.
func Load(path string, explicit bool) (*Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return c, nil
		}
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	if err := c.decode(f); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	switch c.Store {
	case "file", "badger":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	p := c.Argon2.Params()
	if err := p.Validate(); err != nil {
		return err
	}
	// hashes written with these params must parse back
	if p.Time > kdf.MaxHashTime || p.Memory > kdf.MaxHashMemory {
		return fmt.Errorf("%w: cost above m=%d,t=%d", kdf.ErrInvalidParams, kdf.MaxHashMemory, kdf.MaxHashTime)
	}
	if c.S2K.Count < 0 {
		return fmt.Errorf("invalid s2k count %d", c.S2K.Count)
	}
	if c.SelfCheck != nil {
		if _, _, err := c.SelfCheck.decode(); err != nil {
			return err
		}
	}
	return nil
}
