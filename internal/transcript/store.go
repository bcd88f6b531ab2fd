// Package transcript persists broadcast messages in badger so newcomers
// can be greeted with the latest lines.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andy6609/broadcast-chat/internal/chat"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const keyPrefix = "msg:"

type Store struct {
	db  *badger.DB
	log *slog.Logger

	mu   sync.Mutex
	last int64
}

type record struct {
	ID     uuid.UUID `json:"id"`
	Kind   chat.Kind `json:"kind"`
	Sender string    `json:"sender"`
	Text   string    `json:"text,omitempty"`
	At     time.Time `json:"at"`
}

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{log.With("component", "badger")})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open transcript %q: %w", path, err)
	}
	return &Store{db: db, log: log}, nil
}

// Record appends msg. Keys are "msg:{unix_nano}:{uuid}" with the timestamp
// zero padded to 19 digits and strictly increasing within the process, so
// lexicographical order is recording order.
func (s *Store) Record(msg chat.Message) error {
	rec := record{
		ID:     uuid.New(),
		Kind:   msg.Kind,
		Sender: msg.Sender,
		Text:   msg.Text,
		At:     s.now(),
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%019d:%s", keyPrefix, rec.At.UnixNano(), rec.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Recent returns at most n messages, oldest first.
func (s *Store) Recent(n int) ([]chat.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	var records []record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(append(prefix, []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if len(records) == n {
				break
			}
			var rec record
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := lo.Map(records, func(rec record, _ int) chat.Message {
		return chat.Message{Kind: rec.Kind, Sender: rec.Sender, Text: rec.Text}
	})
	return lo.Reverse(messages), nil
}

func (s *Store) Close() error {
	s.log.Debug("closing transcript")
	return s.db.Close()
}

func (s *Store) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := time.Now().UTC().UnixNano()
	if at <= s.last {
		at = s.last + 1
	}
	s.last = at
	return time.Unix(0, at).UTC()
}

// badgerLogger routes badger's printf style logging into slog. Badger's
// info output is housekeeping, so it is demoted to DEBUG.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
