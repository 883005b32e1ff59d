package enroll

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/voicelock/voicelock/pkg/voiceauth"
)

// Memory is an in-memory Store, safe for concurrent use. It runs records
// through the same msgpack codec as the Badger backend so tests exercise
// the real wire form.
type Memory struct {
	mu        sync.RWMutex
	templates map[string][]byte
	attempts  map[string][]memAttempt
}

type memAttempt struct {
	at   int64
	id   string
	data []byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[string][]byte),
		attempts:  make(map[string][]memAttempt),
	}
}

func (m *Memory) PutTemplate(_ context.Context, rec TemplateRecord) error {
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
	m.mu.Lock()
	m.templates[rec.UserID] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetTemplate(_ context.Context, userID string) (TemplateRecord, error) {
	if err := validateUser(userID); err != nil {
		return TemplateRecord{}, err
	}
	m.mu.RLock()
	data, ok := m.templates[userID]
	m.mu.RUnlock()
	if !ok {
		return TemplateRecord{}, fmt.Errorf("%w: %q", ErrNoTemplate, userID)
	}
	return decodeTemplate(data)
}

func (m *Memory) DeleteTemplate(_ context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.templates, userID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Users(_ context.Context) ([]string, error) {
	m.mu.RLock()
	users := make([]string, 0, len(m.templates))
	for id := range m.templates {
		users = append(users, id)
	}
	m.mu.RUnlock()
	sort.Strings(users)
	return users, nil
}

func (m *Memory) AppendAttempt(_ context.Context, rec AttemptRecord) error {
	if err := validateUser(rec.UserID); err != nil {
		return err
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("enroll: encode attempt: %w", err)
	}
	m.mu.Lock()
	m.attempts[rec.UserID] = append(m.attempts[rec.UserID], memAttempt{
		at:   rec.At.UnixNano(),
		id:   rec.ID,
		data: data,
	})
	m.mu.Unlock()
	return nil
}

func (m *Memory) Attempts(_ context.Context, userID string, limit int) ([]AttemptRecord, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries := append([]memAttempt(nil), m.attempts[userID]...)
	m.mu.RUnlock()

	// Same order the Badger keys impose.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at != entries[j].at {
			return entries[i].at < entries[j].at
		}
		return entries[i].id < entries[j].id
	})

	recs := make([]AttemptRecord, 0, len(entries))
	for _, e := range entries {
		var rec AttemptRecord
		if err := msgpack.Unmarshal(e.data, &rec); err != nil {
			return nil, fmt.Errorf("enroll: decode attempt: %w", err)
		}
		recs = append(recs, rec)
	}
	return newestFirst(recs, limit), nil
}

func (m *Memory) Identify(_ context.Context, matcher Matcher, probe voiceauth.FeatureVector, k int) ([]Candidate, error) {
	m.mu.RLock()
	encoded := make([][]byte, 0, len(m.templates))
	for _, data := range m.templates {
		encoded = append(encoded, data)
	}
	m.mu.RUnlock()

	recs := make([]TemplateRecord, 0, len(encoded))
	for _, data := range encoded {
		rec, err := decodeTemplate(data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return rank(matcher, recs, probe, k)
}

func (m *Memory) Close() error {
	return nil
}
