package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/formsapi"
)

// MemoryStore keeps records in memory. It backs tests and the serve command
// when no DSN is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   Clock
	nextID  int64
	records []formsapi.FormRecord
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the timestamp source.
func WithClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{clock: systemClock}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, payload formsapi.FormPayload) (formsapi.FormRecord, error) {
	if err := checkPayload(payload); err != nil {
		return formsapi.FormRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.clock()
	record := formsapi.FormRecord{
		ID:          s.nextID,
		DocumentID:  newDocumentID(),
		Title:       payload.Title,
		Description: payload.Description,
		IsMultiStep: payload.IsMultiStep,
		JSONSchema:  append(json.RawMessage(nil), payload.JSONSchema...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.records = append(s.records, record)
	return copyRecord(record), nil
}

func (s *MemoryStore) Update(_ context.Context, documentID string, payload formsapi.FormPayload) (formsapi.FormRecord, error) {
	if err := checkPayload(payload); err != nil {
		return formsapi.FormRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx := range s.records {
		if s.records[idx].DocumentID != documentID {
			continue
		}
		record := &s.records[idx]
		record.Title = payload.Title
		record.Description = payload.Description
		record.IsMultiStep = payload.IsMultiStep
		record.JSONSchema = append(json.RawMessage(nil), payload.JSONSchema...)
		record.UpdatedAt = s.clock()
		return copyRecord(*record), nil
	}
	return formsapi.FormRecord{}, ErrNotFound
}

func (s *MemoryStore) Get(_ context.Context, documentID string) (formsapi.FormRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.DocumentID == documentID {
			return copyRecord(record), nil
		}
	}
	return formsapi.FormRecord{}, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]formsapi.FormRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]formsapi.FormRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, copyRecord(record))
	}
	return out, nil
}

func copyRecord(record formsapi.FormRecord) formsapi.FormRecord {
	record.JSONSchema = append(json.RawMessage(nil), record.JSONSchema...)
	return record
}
