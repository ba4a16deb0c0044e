// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM (tests, ephemeral deployments).
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// BadgerStore implements DurableStore on BadgerDB. Keys are
// "<collection>:<key>", values are JSON-encoded Records.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadger opens (or creates) a BadgerDB according to cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required unless in-memory")
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

func recordKey(collection, key string) []byte {
	return []byte(collection + ":" + key)
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + ":")
}

func readRecord(item *badger.Item) (*Record, error) {
	var rec Record
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", item.Key(), err)
	}
	return &rec, nil
}

// FindOne implements DurableStore.
func (s *BadgerStore) FindOne(ctx context.Context, collection, key string) (*Record, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(collection, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", collection, key, err)
		}
		rec, err = readRecord(item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindMany implements DurableStore. All keys are read in one transaction.
func (s *BadgerStore) FindMany(ctx context.Context, collection string, keys []string) ([]*Record, error) {
	keys = dedupe(keys)
	if len(keys) == 0 {
		return []*Record{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs := make([]*Record, 0, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(recordKey(collection, key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s/%s: %w", collection, key, err)
			}
			rec, err := readRecord(item)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Upsert implements DurableStore.
func (s *BadgerStore) Upsert(ctx context.Context, collection, key string, data any) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		now := s.now().UTC()
		rec := Record{
			Collection: collection,
			Key:        key,
			Data:       payload,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		item, err := txn.Get(recordKey(collection, key))
		switch {
		case err == nil:
			prev, err := readRecord(item)
			if err != nil {
				return err
			}
			rec.CreatedAt = prev.CreatedAt
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("get %s/%s: %w", collection, key, err)
		}

		val, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return txn.Set(recordKey(collection, key), val)
	})
}

// DeleteOne implements DurableStore.
func (s *BadgerStore) DeleteOne(ctx context.Context, collection, key string) (int, error) {
	if err := validateKey(collection, key); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		k := recordKey(collection, key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return fmt.Errorf("get %s/%s: %w", collection, key, err)
		}
		if err := txn.Delete(k); err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, key, err)
		}
		deleted = 1
		return nil
	})
	return deleted, err
}

// DeleteMany implements DurableStore. Matching keys are collected in a read
// transaction and removed through a write batch, so large collections do
// not hit the transaction size limit.
func (s *BadgerStore) DeleteMany(ctx context.Context, collection string, filter Filter) (int, error) {
	if collection == "" {
		return 0, ErrInvalidKey
	}

	prefix := collectionPrefix(collection)
	var doomed [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := it.Item().KeyCopy(nil)
			if filter.Match(string(k[len(prefix):])) {
				doomed = append(doomed, k)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", collection, err)
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range doomed {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete %s: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush deletes: %w", err)
	}
	return len(doomed), nil
}

// Count implements DurableStore.
func (s *BadgerStore) Count(ctx context.Context, collection string) (int, error) {
	prefix := collectionPrefix(collection)
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return ctx.Err()
	})
	return n, err
}

// Scan implements DurableStore.
func (s *BadgerStore) Scan(ctx context.Context, collection string, fn func(*Record) error) error {
	prefix := collectionPrefix(collection)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := readRecord(it.Item())
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements DurableStore.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
