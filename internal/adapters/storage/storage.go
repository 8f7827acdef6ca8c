// Package storage persists ratings and the comparison log between runs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
)

// State is everything that survives a restart. The compared-pair index is
// derived from History and never stored.
type State struct {
	Ratings map[model.Item]model.RatingRecord
	History []model.ComparisonEvent
}

// Clone returns a deep copy of st.
func (st State) Clone() State {
	out := State{
		Ratings: make(map[model.Item]model.RatingRecord, len(st.Ratings)),
		History: append([]model.ComparisonEvent(nil), st.History...),
	}
	for it, rec := range st.Ratings {
		out.Ratings[it] = rec
	}
	return out
}

// Store loads and saves State.
type Store interface {
	// Load returns the persisted state. A store with nothing saved yet
	// returns an empty state and no error.
	Load(ctx context.Context) (State, error)
	// Save replaces the persisted state with st.
	Save(ctx context.Context, st State) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

// Supported backends.
const (
	BackendJSON   Backend = "json"
	BackendBadger Backend = "badger"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend      Backend
	RankingsFile string
	HistoryFile  string
	BadgerDir    string
}

// Open builds the Store named by s.Backend.
func Open(s Settings) (Store, error) {
	switch s.Backend {
	case BackendJSON, "":
		return NewJSONFileStore(s.RankingsFile, s.HistoryFile), nil
	case BackendBadger:
		return OpenBadgerStore(s.BadgerDir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}

// historyRecord is the persisted shape of a ComparisonEvent. song1 is the
// winner and song2 the loser; winner repeats song1.
type historyRecord struct {
	Song1  model.Item `json:"song1"`
	Song2  model.Item `json:"song2"`
	Winner model.Item `json:"winner"`
	Time   float64    `json:"time"`
}

func toHistoryRecord(ev model.ComparisonEvent) historyRecord {
	var ts float64
	if !ev.Time.IsZero() {
		ts = float64(ev.Time.UnixNano()) / float64(time.Second)
	}
	return historyRecord{Song1: ev.Winner, Song2: ev.Loser, Winner: ev.Winner, Time: ts}
}

func (h historyRecord) event() (model.ComparisonEvent, error) {
	if h.Song1 == "" || h.Song2 == "" {
		return model.ComparisonEvent{}, fmt.Errorf("%w: history entry without both songs", ErrCorruptState)
	}
	ev := model.ComparisonEvent{Winner: h.Song1, Loser: h.Song2}
	// Older logs may name the winner only in the winner field.
	if h.Winner == h.Song2 {
		ev.Winner, ev.Loser = h.Song2, h.Song1
	}
	if h.Time > 0 {
		sec := int64(h.Time)
		ev.Time = time.Unix(sec, int64((h.Time-float64(sec))*float64(time.Second))).UTC()
	}
	return ev, nil
}
