// Package transcript keeps a local history of chat lines in Pebble.
package transcript

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/goccy/go-json"
)

// Entry is one stored line.
type Entry struct {
	At     time.Time `json:"at"`
	Sender string    `json:"sender,omitempty"`
	Body   string    `json:"body"`
	System bool      `json:"system,omitempty"`
}

// Store persists entries per chat. Keys are the 8-byte big-endian chat id
// followed by an 8-byte big-endian sequence number, so a chat's entries are
// contiguous and ordered by arrival.
//
// A nil *Store is valid and stores nothing.
type Store struct {
	db *pebble.DB

	mu   sync.Mutex
	next map[int64]uint64
}

// Open opens or creates the store in dir. An empty dir returns a nil store.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	return &Store{db: db, next: make(map[int64]uint64)}, nil
}

func chatPrefix(chatID int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(chatID))
	return b
}

func entryKey(chatID int64, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(chatPrefix(chatID), seq)
}

func bounds(chatID int64) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: chatPrefix(chatID),
		UpperBound: chatPrefix(chatID + 1),
	}
}

// nextSeq must be called with s.mu held.
func (s *Store) nextSeq(chatID int64) (uint64, error) {
	if seq, ok := s.next[chatID]; ok {
		return seq, nil
	}

	it, err := s.db.NewIter(bounds(chatID))
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	var seq uint64
	if it.Last() && len(it.Key()) == 16 {
		seq = binary.BigEndian.Uint64(it.Key()[8:]) + 1
	}
	return seq, nil
}

// Append stores e at the end of the chat's history.
func (s *Store) Append(chatID int64, e Entry) error {
	if s == nil {
		return nil
	}

	val, err := json.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	seq, err := s.nextSeq(chatID)
	if err != nil {
		return err
	}
	if err := s.db.Set(entryKey(chatID, seq), val, pebble.Sync); err != nil {
		return err
	}
	s.next[chatID] = seq + 1
	return nil
}

// Recent returns up to limit of the chat's latest entries, oldest first.
// A limit <= 0 returns the whole history.
func (s *Store) Recent(chatID int64, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	it, err := s.db.NewIter(bounds(chatID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var out []Entry
	for valid := it.Last(); valid; valid = it.Prev() {
		if limit > 0 && len(out) == limit {
			break
		}
		var e Entry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	slices.Reverse(out)
	return out, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
