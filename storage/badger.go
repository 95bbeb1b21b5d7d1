package storage

import (
	"errors"
	"fmt"
	"github.com/dgraph-io/badger/v2"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/protobuf/encoding/protowire"
	"path/filepath"
	"sync"
	"time"
)

const (
	recordKey        = "derive/hash"
	dbName           = "derive.db"
	MinGcDuration    = 1 * time.Minute
	ValueLogFileSize = 16 << 20
)

const hashField protowire.Number = 1

type BadgerConfig struct {
	Path       string
	InMemory   bool
	GcInterval time.Duration
}

// BadgerStore keeps the record under a single key of a badger database.
type BadgerStore struct {
	db         *badger.DB
	gcInterval *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
	logger     hclog.Logger
	config     *BadgerConfig
	sync.RWMutex
}

func badgerPath(dir string) string {
	return filepath.Join(dir, dbName)
}

func NewBadgerStore(config *BadgerConfig, logger hclog.Logger) (*BadgerStore, error) {
	path := config.Path
	if config.InMemory {
		path = ""
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(config.InMemory).
		WithLogger(badgerLogger{logger}).
		WithLoggingLevel(badger.ERROR).
		WithNumVersionsToKeep(1).
		WithNumLevelZeroTables(1).
		WithValueLogFileSize(ValueLogFileSize)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	interval := config.GcInterval
	if interval < MinGcDuration {
		interval = MinGcDuration
	}

	b := &BadgerStore{
		db:     db,
		done:   make(chan struct{}),
		logger: logger,
		config: config,
	}
	// badger refuses value log GC in memory mode
	if !config.InMemory {
		b.gcInterval = time.NewTicker(interval)
		go b.gcLoop()
	}

	return b, nil
}

func (b *BadgerStore) Load() (*Record, error) {
	b.RLock()
	defer b.RUnlock()

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recordKey))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	return decodeRecord(value)
}

func (b *BadgerStore) Save(r *Record) error {
	b.RLock()
	defer b.RUnlock()
	b.logger.Trace("saving record")
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(recordKey), encodeRecord(r))
	}); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (b *BadgerStore) Path() string {
	if b.config.InMemory {
		return ""
	}
	return b.config.Path
}

func (b *BadgerStore) Size() (int64, error) {
	b.RLock()
	defer b.RUnlock()
	lsm, vlog := b.db.Size()
	return lsm + vlog, nil
}

// Close stops the GC loop and closes the database. Only the first call has
// an effect.
func (b *BadgerStore) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.Lock()
		defer b.Unlock()
		if b.gcInterval != nil {
			b.gcInterval.Stop()
		}
		close(b.done)
		err = b.db.Close()
	})
	return err
}

func encodeRecord(r *Record) []byte {
	buf := protowire.AppendTag(nil, hashField, protowire.BytesType)
	return protowire.AppendString(buf, r.Hash)
}

func decodeRecord(buf []byte) (*Record, error) {
	var (
		r     Record
		found bool
	)
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
		}
		buf = buf[n:]

		if num == hashField && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
			}
			r.Hash, found = v, true
			buf = buf[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
		}
		buf = buf[n:]
	}
	if !found {
		return nil, fmt.Errorf("%w: missing hash", ErrMalformedRecord)
	}
	return &r, nil
}

// badgerLogger routes badger's own logs through hclog.
type badgerLogger struct {
	hclog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}
