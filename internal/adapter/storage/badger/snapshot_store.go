package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"krwx-ledger/internal/core/domain"

	"github.com/dgraph-io/badger/v3"
)

const (
	latestKey     = "snapshot:latest"
	historyPrefix = "snapshot:seq:"
)

// SnapshotStore implements ports.SnapshotStore on an embedded Badger DB.
// Every save writes the latest pointer and a history entry keyed by the
// snapshot's next sequence number.
type SnapshotStore struct {
	db *badger.DB
}

// Open opens (or creates) the store in dir. An empty dir opens an
// in-memory store.
func Open(dir string) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close closes the underlying DB.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save stores snap as the latest snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(latestKey), val); err != nil {
			return err
		}
		return txn.Set(historyKey(snap.NextSeq), val)
	})
}

// Load returns the latest snapshot, or nil when none was saved.
func (s *SnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	return s.get([]byte(latestKey))
}

// LoadAt returns the snapshot taken when the next sequence number was seq.
func (s *SnapshotStore) LoadAt(_ context.Context, seq uint64) (*domain.Snapshot, error) {
	return s.get(historyKey(seq))
}

// History lists the sequence numbers of all stored snapshots in ascending order.
func (s *SnapshotStore) History(_ context.Context) ([]uint64, error) {
	var seqs []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(historyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			seqs = append(seqs, binary.BigEndian.Uint64(key[len(historyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return seqs, nil
}

func (s *SnapshotStore) get(key []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}

// Big-endian keeps history keys in sequence order under iteration.
func historyKey(seq uint64) []byte {
	key := make([]byte, len(historyPrefix)+8)
	copy(key, historyPrefix)
	binary.BigEndian.PutUint64(key[len(historyPrefix):], seq)
	return key
}
