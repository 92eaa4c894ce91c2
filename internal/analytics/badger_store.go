package analytics

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout:
//
//	session:{unix_nano_19}:{uuid} -> JSON SessionEvent (time ordered)
//	stat:{counter}                -> uint64 big endian
//	online:{conn_id}              -> JSON OnlineUser
//	user:{username}               -> empty (distinct usernames ever seen)
const (
	sessionPrefix = "session:"
	statPrefix    = "stat:"
	onlinePrefix  = "online:"
	userPrefix    = "user:"

	maxTxnAttempts = 5
)

type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// OpenBadger opens (or creates) the store at path. An empty path keeps
// everything in memory.
func OpenBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open analytics db %q: %w", path, err)
	}
	return NewBadgerStore(db, logger), nil
}

// OpenBadgerReadOnly opens an existing store for inspection.
func OpenBadgerReadOnly(path string, logger *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithReadOnly(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open analytics db %q read-only: %w", path, err)
	}
	return NewBadgerStore(db, logger), nil
}

func NewBadgerStore(db *badger.DB, logger *slog.Logger) *BadgerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, log: logger}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debug("analytics txn conflict, retrying", "attempt", attempt+1)
	}
	return err
}

func sessionKey(ev SessionEvent) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", sessionPrefix, ev.Timestamp.UnixNano(), ev.ID))
}

func (s *BadgerStore) SaveSession(ev SessionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	return s.update(func(txn *badger.Txn) error {
		if err := txn.Set(sessionKey(ev), value); err != nil {
			return err
		}
		if ev.Username != "" {
			return txn.Set([]byte(userPrefix+ev.Username), nil)
		}
		return nil
	})
}

func readCounter(txn *badger.Txn, c Counter) (uint64, error) {
	item, err := txn.Get([]byte(statPrefix + string(c)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("counter %s: corrupt value of %d bytes", c, len(val))
		}
		v = binary.BigEndian.Uint64(val)
		return nil
	})
	return v, err
}

func writeCounter(txn *badger.Txn, c Counter, v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return txn.Set([]byte(statPrefix+string(c)), buf)
}

func (s *BadgerStore) IncrementCounter(c Counter, delta uint64) error {
	return s.update(func(txn *badger.Txn) error {
		v, err := readCounter(txn, c)
		if err != nil {
			return err
		}
		return writeCounter(txn, c, v+delta)
	})
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// PutOnline records u as online and raises the peak concurrency counter when
// the online count exceeds it.
func (s *BadgerStore) PutOnline(u OnlineUser) error {
	value, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode online user: %w", err)
	}
	key := []byte(onlinePrefix + u.ConnID)
	return s.update(func(txn *badger.Txn) error {
		online := countPrefix(txn, onlinePrefix)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			online++
		} else if err != nil {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}

		peak, err := readCounter(txn, PeakConcurrentUsers)
		if err != nil {
			return err
		}
		if uint64(online) > peak {
			return writeCounter(txn, PeakConcurrentUsers, uint64(online))
		}
		return nil
	})
}

func (s *BadgerStore) DeleteOnline(connID string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(onlinePrefix + connID))
	})
}

// ResetOnline clears online records left over from a previous process.
func (s *BadgerStore) ResetOnline() error {
	return s.db.DropPrefix([]byte(onlinePrefix))
}

func (s *BadgerStore) Stats() (Stats, error) {
	var stats Stats
	err := s.db.View(func(txn *badger.Txn) error {
		for _, c := range Counters {
			v, err := readCounter(txn, c)
			if err != nil {
				return err
			}
			stats.set(c, v)
		}
		return nil
	})
	return stats, err
}

// RecentSessions returns up to limit session events, newest first.
func (s *BadgerStore) RecentSessions(limit int) ([]SessionEvent, error) {
	out := make([]SessionEvent, 0)
	if limit <= 0 {
		return out, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(sessionPrefix + "\xff")); it.Valid() && len(out) < limit; it.Next() {
			var ev SessionEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("decode session %q: %w", it.Item().Key(), err)
			}
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

// Online returns currently online users ordered by join time.
func (s *BadgerStore) Online() ([]OnlineUser, error) {
	out := make([]OnlineUser, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(onlinePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var u OnlineUser
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &u)
			}); err != nil {
				return fmt.Errorf("decode online user %q: %w", it.Item().Key(), err)
			}
			out = append(out, u)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, err
}

func (s *BadgerStore) UniqueUsers() (int, error) {
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		n = countPrefix(txn, userPrefix)
		return nil
	})
	return n, err
}
