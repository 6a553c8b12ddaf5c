package vocab

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wordscape/wordscape/pkg/embedding"
)

// ErrNotFound is returned when a word has no entry.
var ErrNotFound = errors.New("vocab: entry not found")

// Entry is one learned word with its position and encounter history.
type Entry struct {
	Word        string          `msgpack:"word"`
	Point       embedding.Point `msgpack:"point"`
	Count       int             `msgpack:"count"`
	FirstHeard  time.Time       `msgpack:"first_heard"`
	LastHeard   time.Time       `msgpack:"last_heard"`
	Fallback    bool            `msgpack:"fallback"`
	UtteranceID string          `msgpack:"utterance_id"`
}

// Store persists vocabulary entries keyed by word.
type Store interface {
	Get(ctx context.Context, word string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, word string) error
	All(ctx context.Context) iter.Seq2[Entry, error]
	Close() error
}

var keyPrefix = []byte("word:")

func entryKey(word string) []byte {
	return append(append([]byte{}, keyPrefix...), word...)
}

// BadgerStore is a Store backed by BadgerDB v4 with msgpack values.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for
	// testing with a real badger engine.
	InMemory bool

	// Logger sets the badger logger. Defaults to a quiet logger that
	// only surfaces warnings and errors.
	Logger badger.Logger
}

// NewBadgerStore opens (or creates) a vocabulary database.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("vocab: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("vocab: open store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, word string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(word))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vocab: get %q: %w", word, err)
	}
	return &entry, nil
}

func (s *BadgerStore) Put(_ context.Context, entry *Entry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("vocab: encode %q: %w", entry.Word, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.Word), data)
	})
}

func (s *BadgerStore) Delete(_ context.Context, word string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(word))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *BadgerStore) All(_ context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		err := s.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = keyPrefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
				var entry Entry
				err := it.Item().Value(func(val []byte) error {
					return msgpack.Unmarshal(val, &entry)
				})
				if !yield(entry, err) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Entry{}, err)
		}
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// quietLogger drops badger's info and debug chatter.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { fmt.Printf("[badger] ERROR: "+f+"\n", v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { fmt.Printf("[badger] WARN: "+f+"\n", v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, word string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[word]
	if !ok {
		return nil, ErrNotFound
	}
	out := entry
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Word] = *entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, word)
	return nil
}

func (s *MemoryStore) All(_ context.Context) iter.Seq2[Entry, error] {
	s.mu.Lock()
	words := make([]string, 0, len(s.entries))
	for w := range s.entries {
		words = append(words, w)
	}
	sort.Strings(words)
	out := make([]Entry, 0, len(words))
	for _, w := range words {
		out = append(out, s.entries[w])
	}
	s.mu.Unlock()

	return func(yield func(Entry, error) bool) {
		for _, entry := range out {
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
