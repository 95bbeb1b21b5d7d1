package storage

import (
	"errors"
	"github.com/dgraph-io/badger/v2"
)

const discardRatio = 0.5

func (b *BadgerStore) runGC() error {
	b.RLock()
	defer b.RUnlock()
	select {
	case <-b.done:
		return badger.ErrRejected
	default:
	}
	return b.db.RunValueLogGC(discardRatio)
}

func (b *BadgerStore) gcLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.gcInterval.C:
		}

		compacted := 0
		for {
			err := b.runGC()
			if err == nil {
				compacted++
				continue
			}
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				b.logger.Error("value log GC failed", "error", err)
			}
			break
		}
		b.logger.Trace("value log GC done", "compacted", compacted)
	}
}
