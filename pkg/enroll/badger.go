package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/voicelock/voicelock/pkg/voiceauth"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the Badger store.
type BadgerOptions struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence. Useful for tests
	// that want the real engine.
	InMemory bool

	// Logger overrides the badger logger. If nil, badger output is
	// routed to slog with info/debug suppressed.
	Logger badger.Logger
}

// NewBadger opens (creating if needed) a Badger-backed store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("enroll: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(badgerSlog{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("enroll: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) PutTemplate(_ context.Context, rec TemplateRecord) error {
	if err := validateUser(rec.UserID); err != nil {
		return err
	}
	if _, err := rec.Vector(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("enroll: encode template: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(templateKey(rec.UserID), data)
	})
}

func (b *Badger) GetTemplate(_ context.Context, userID string) (TemplateRecord, error) {
	if err := validateUser(userID); err != nil {
		return TemplateRecord{}, err
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(templateKey(userID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return TemplateRecord{}, fmt.Errorf("%w: %q", ErrNoTemplate, userID)
	}
	if err != nil {
		return TemplateRecord{}, err
	}
	return decodeTemplate(data)
}

func (b *Badger) DeleteTemplate(_ context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(templateKey(userID))
	})
}

func (b *Badger) Users(_ context.Context) ([]string, error) {
	prefix := []byte(templatePrefix)
	var users []string
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			users = append(users, string(key[len(prefix):]))
		}
		return nil
	})
	return users, err
}

func (b *Badger) AppendAttempt(_ context.Context, rec AttemptRecord) error {
	if err := validateUser(rec.UserID); err != nil {
		return err
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("enroll: encode attempt: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(attemptKey(rec), data)
	})
}

func (b *Badger) Attempts(_ context.Context, userID string, limit int) ([]AttemptRecord, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	prefix := userAttemptPrefix(userID)
	var recs []AttemptRecord
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec AttemptRecord
			if err := msgpack.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("enroll: decode attempt: %w", err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newestFirst(recs, limit), nil
}

func (b *Badger) Identify(_ context.Context, m Matcher, probe voiceauth.FeatureVector, k int) ([]Candidate, error) {
	prefix := []byte(templatePrefix)
	var recs []TemplateRecord
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeTemplate(data)
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
	return rank(m, recs, probe, k)
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func decodeTemplate(data []byte) (TemplateRecord, error) {
	var rec TemplateRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return TemplateRecord{}, fmt.Errorf("enroll: decode template: %w", err)
	}
	return rec, nil
}

// newestFirst reverses chronological order and trims to limit.
func newestFirst(recs []AttemptRecord, limit int) []AttemptRecord {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// badgerSlog routes badger's warnings and errors to slog and drops its
// chatty info/debug output.
type badgerSlog struct{}

func (badgerSlog) Errorf(f string, v ...interface{}) {
	slog.Error("enroll: badger", "msg", fmt.Sprintf(f, v...))
}

func (badgerSlog) Warningf(f string, v ...interface{}) {
	slog.Warn("enroll: badger", "msg", fmt.Sprintf(f, v...))
}

func (badgerSlog) Infof(string, ...interface{})  {}
func (badgerSlog) Debugf(string, ...interface{}) {}
