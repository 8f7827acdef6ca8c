package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/pairrank/internal/domain/model"
)

// Key layout.
const (
	ratingKeyPrefix  = "rating/"
	historyKeyPrefix = "history/"
	historyLenKey    = "meta/history_len"
)

// BadgerStore persists State in a BadgerDB. Ratings live under
// rating/<item>; history entries under history/<20-digit sequence> so the
// key order equals the log order.
type BadgerStore struct {
	mu     sync.Mutex
	db     *badger.DB
	owned  bool
	closed bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db at %s: %w", dir, err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStore wraps an already open DB. Close leaves the DB open.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func historyKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s%020d", historyKeyPrefix, seq))
}

// Load reads every rating and the whole history in sequence order.
func (s *BadgerStore) Load(_ context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, ErrClosed
	}

	st := State{Ratings: map[model.Item]model.RatingRecord{}}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ratingKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := model.Item(strings.TrimPrefix(string(item.Key()), ratingKeyPrefix))
			rec := model.NewRecord()
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("%w: rating %q: %v", ErrCorruptState, name, err)
			}
			st.Ratings[name] = rec.Normalize()
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(historyKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec historyRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptState, it.Item().Key(), err)
			}
			ev, err := rec.event()
			if err != nil {
				return err
			}
			st.History = append(st.History, ev)
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return st, nil
}

// Save writes all ratings and appends history entries not yet stored. The
// log is append-only, so a shorter history than stored is rewritten in full.
func (s *BadgerStore) Save(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for it, rec := range st.Ratings {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal rating %q: %w", it, err)
			}
			if err := txn.Set([]byte(ratingKeyPrefix+string(it)), data); err != nil {
				return fmt.Errorf("set rating %q: %w", it, err)
			}
		}

		stored, err := storedHistoryLen(txn)
		if err != nil {
			return err
		}
		if stored > len(st.History) {
			for seq := len(st.History); seq < stored; seq++ {
				if err := txn.Delete(historyKey(seq)); err != nil {
					return fmt.Errorf("delete history %d: %w", seq, err)
				}
			}
			stored = len(st.History)
		}
		for seq := stored; seq < len(st.History); seq++ {
			data, err := json.Marshal(toHistoryRecord(st.History[seq]))
			if err != nil {
				return fmt.Errorf("marshal history %d: %w", seq, err)
			}
			if err := txn.Set(historyKey(seq), data); err != nil {
				return fmt.Errorf("set history %d: %w", seq, err)
			}
		}
		return txn.Set([]byte(historyLenKey), []byte(strconv.Itoa(len(st.History))))
	})
}

func storedHistoryLen(txn *badger.Txn) (int, error) {
	item, err := txn.Get([]byte(historyLenKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get history length: %w", err)
	}
	var n int
	err = item.Value(func(val []byte) error {
		v, err := strconv.Atoi(string(val))
		n = v
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: history length: %v", ErrCorruptState, err)
	}
	return n, nil
}

// Close closes the DB if the store opened it.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}
