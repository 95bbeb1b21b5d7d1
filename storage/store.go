package storage

import (
	"errors"
	"fmt"
	"github.com/hashicorp/go-hclog"
	"time"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrMalformedRecord = errors.New("malformed record")
)

const (
	KindFile   = "file"
	KindBadger = "badger"
)

// Record is the persisted state: the last saved PHC hash.
type Record struct {
	Hash string `json:"hash"`
}

type Store interface {
	// Load returns ErrRecordNotFound when nothing was saved yet.
	Load() (*Record, error)
	Save(r *Record) error
	// Path is the location of the store on disk, empty when in memory.
	Path() string
	Size() (int64, error)
	Close() error
}

type Config struct {
	Kind       string
	DataDir    string
	InMemory   bool
	GcInterval time.Duration
}

// Open opens the store of the configured kind under DataDir.
func Open(config *Config, logger hclog.Logger) (Store, error) {
	switch config.Kind {
	case KindFile, "":
		return NewFileStore(config.DataDir), nil
	case KindBadger:
		return NewBadgerStore(&BadgerConfig{
			Path:       badgerPath(config.DataDir),
			InMemory:   config.InMemory,
			GcInterval: config.GcInterval,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown store %q", config.Kind)
	}
}
