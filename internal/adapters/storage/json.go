package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/pkg/logger"
)

// JSONOption applies a configuration option to the JSONFileStore.
type JSONOption func(*JSONFileStore)

// WithJSONLogger sets the logger used by the store.
func WithJSONLogger(l logger.Logger) JSONOption {
	return func(s *JSONFileStore) {
		if l != nil {
			s.log = l
		}
	}
}

// JSONFileStore keeps ratings and history in two JSON files.
type JSONFileStore struct {
	mu           sync.Mutex
	rankingsPath string
	historyPath  string
	log          logger.Logger
}

// NewJSONFileStore creates a store over the given files. The files need not exist.
func NewJSONFileStore(rankingsPath, historyPath string, opts ...JSONOption) *JSONFileStore {
	s := &JSONFileStore{
		rankingsPath: rankingsPath,
		historyPath:  historyPath,
		log:          logger.Named("storage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads both files. Ratings may be full records or legacy bare numbers.
func (s *JSONFileStore) Load(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{Ratings: map[model.Item]model.RatingRecord{}}

	raw, err := readOptional(s.rankingsPath)
	if err != nil {
		return State{}, err
	}
	if raw != nil {
		ratings, legacy, err := decodeRatings(raw)
		if err != nil {
			return State{}, fmt.Errorf("%s: %w", s.rankingsPath, err)
		}
		if legacy > 0 {
			s.log.Info(ctx, "converted legacy ratings", logger.Int("count", legacy))
		}
		st.Ratings = ratings
	}

	raw, err = readOptional(s.historyPath)
	if err != nil {
		return State{}, err
	}
	if raw != nil {
		var recs []historyRecord
		if err := json.Unmarshal(raw, &recs); err != nil {
			return State{}, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.historyPath, err)
		}
		st.History = make([]model.ComparisonEvent, 0, len(recs))
		for _, r := range recs {
			ev, err := r.event()
			if err != nil {
				return State{}, fmt.Errorf("%s: %w", s.historyPath, err)
			}
			st.History = append(st.History, ev)
		}
	}
	return st, nil
}

// Save writes both files through a temp file and rename.
func (s *JSONFileStore) Save(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratings := make(map[model.Item]model.RatingRecord, len(st.Ratings))
	for it, rec := range st.Ratings {
		ratings[it] = rec
	}
	data, err := json.Marshal(ratings)
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}
	if err := writeAtomic(s.rankingsPath, data); err != nil {
		return err
	}

	recs := make([]historyRecord, len(st.History))
	for i, ev := range st.History {
		recs[i] = toHistoryRecord(ev)
	}
	data, err = json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return writeAtomic(s.historyPath, data)
}

// Close is a no-op; files are closed after every write.
func (s *JSONFileStore) Close() error { return nil }

// decodeRatings accepts item -> record or item -> number and reports how
// many legacy numbers it converted.
func decodeRatings(raw []byte) (map[model.Item]model.RatingRecord, int, error) {
	var entries map[model.Item]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	out := make(map[model.Item]model.RatingRecord, len(entries))
	legacy := 0
	for it, msg := range entries {
		msg = bytes.TrimSpace(msg)
		if len(msg) > 0 && msg[0] == '{' {
			rec := model.NewRecord()
			if err := json.Unmarshal(msg, &rec); err != nil {
				return nil, 0, fmt.Errorf("%w: item %q: %v", ErrCorruptState, it, err)
			}
			out[it] = rec.Normalize()
			continue
		}
		if !isNumberToken(msg) {
			return nil, 0, fmt.Errorf("%w: item %q: rating must be a number or a record, got %s",
				ErrCorruptState, it, truncate(msg))
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, 0, fmt.Errorf("%w: item %q: %v", ErrCorruptState, it, err)
		}
		out[it] = model.LegacyRecord(v)
		legacy++
	}
	return out, legacy, nil
}

// isNumberToken reports whether msg starts like a JSON number. null would
// otherwise decode into a zero rating.
func isNumberToken(msg []byte) bool {
	return len(msg) > 0 && (msg[0] == '-' || (msg[0] >= '0' && msg[0] <= '9'))
}

func truncate(msg []byte) string {
	const limit = 32
	if len(msg) > limit {
		return string(msg[:limit]) + "..."
	}
	return string(msg)
}

// readOptional returns nil data for a missing or empty file.
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
