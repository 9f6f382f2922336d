package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/ports"
)

var (
	ErrNotFound = errors.New("not found")
)

const recordPrefix = "validation:"

// BadgerStore implements ports.ValidationStore with Badger DB.
type BadgerStore struct {
	db *badger.DB
}

var _ ports.ValidationStore = (*BadgerStore)(nil)

// NewBadgerStore opens a store at path. An empty path keeps everything in memory.
func NewBadgerStore(path string) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Clean(path))
		opts = opts.WithValueLogFileSize(1 << 20) // small value log; records are tiny
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func (s *BadgerStore) Save(ctx context.Context, rec *domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*domain.Record, error) {
	var out domain.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List scans every record and returns the newest limit of them.
func (s *BadgerStore) List(ctx context.Context, limit int) ([]domain.Record, error) {
	var out []domain.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec domain.Record
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
