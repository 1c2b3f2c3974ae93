package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// BadgerStore is the production ledger KV backed by Badger. Provides durable,
// disk-based storage with fsync on every write.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup

	// writeMu serialises Put calls; the ledger relies on single-writer
	// semantics regardless of how many tasks hold the store.
	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// NewBadgerStore opens (creating if missing) a Badger database at dataPath.
// Open failure is a fatal boot-time condition for the node; callers are
// expected to exit on error.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true // Ensure durability (fsync on every write)
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger store initialized", "path", absPath)

	return bs, nil
}

// runGC runs periodic value-log garbage collection in the background.
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Put persists a formatted entry under its content key.
func (b *BadgerStore) Put(ctx context.Context, key [32]byte, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(storageKey(key), []byte(value))
	})
}

// Get retrieves the formatted entry for a key. Absence is not an error.
func (b *BadgerStore) Get(ctx context.Context, key [32]byte) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return "", false, fmt.Errorf("store is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(storageKey(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...) // Copy value
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read entry: %w", err)
	}

	if data == nil {
		return "", false, nil
	}
	return string(data), true, nil
}

// Close stops background GC and closes the database.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

func storageKey(key [32]byte) []byte {
	k := make([]byte, 32)
	copy(k, key[:])
	return k
}
