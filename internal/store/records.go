package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidRecordType = errors.New("record type must be intake or report")

// RecordStore owns the list of client records and mirrors it into a single
// Slot key. Every mutation rewrites the full snapshot before returning.
type RecordStore struct {
	slot Slot
	key  string
	log  *zap.Logger
	now  func() time.Time

	mu      sync.Mutex
	records []Record
}

type Option func(*RecordStore)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *RecordStore) { s.now = now }
}

func NewRecordStore(slot Slot, key string, log *zap.Logger, opts ...Option) *RecordStore {
	s := &RecordStore{
		slot: slot,
		key:  key,
		log:  log,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory snapshot with the persisted one. It never fails:
// absent, unreadable or malformed payloads all yield an empty snapshot.
func (s *RecordStore) Load(ctx context.Context) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.read(ctx)
	return s.copyLocked()
}

func (s *RecordStore) read(ctx context.Context) []Record {
	payload, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			s.log.Warn("failed to read records, starting empty", zap.String("slot", s.key), zap.Error(err))
		}
		return []Record{}
	}

	var records []Record
	if err := json.Unmarshal(payload, &records); err != nil {
		s.log.Warn("malformed records payload, starting empty", zap.String("slot", s.key), zap.Error(err))
		return []Record{}
	}
	if records == nil {
		return []Record{}
	}
	for i, r := range records {
		if !r.Type.Valid() {
			s.log.Warn("record without a valid type, starting empty",
				zap.String("slot", s.key), zap.Int("position", i))
			return []Record{}
		}
	}
	return records
}

// Append stamps the candidate with an ID and the current time, adds it to the
// end of the snapshot and persists.
func (s *RecordStore) Append(ctx context.Context, candidate Record) ([]Record, error) {
	if !candidate.Type.Valid() {
		return nil, ErrInvalidRecordType
	}
	candidate.ID = uuid.NewString()
	candidate.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(ctx, candidate)
}

// appendRaw keeps the caller's ID and CreatedAt. Used by legacy imports.
func (s *RecordStore) appendRaw(ctx context.Context, records []Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.records
	updated := make([]Record, 0, len(prev)+len(records))
	updated = append(updated, prev...)
	updated = append(updated, records...)
	if err := s.persistLocked(ctx, updated); err != nil {
		return nil, err
	}
	s.records = updated
	return s.copyLocked(), nil
}

func (s *RecordStore) appendLocked(ctx context.Context, r Record) ([]Record, error) {
	updated := make([]Record, 0, len(s.records)+1)
	updated = append(updated, s.records...)
	updated = append(updated, r)
	if err := s.persistLocked(ctx, updated); err != nil {
		return nil, err
	}
	s.records = updated
	s.log.Info("record appended",
		zap.String("id", r.ID),
		zap.String("type", string(r.Type)),
		zap.String("client", r.Client),
		zap.Int("total", len(updated)))
	return s.copyLocked(), nil
}

// RemoveAt deletes the record at index. An out-of-range index is a no-op.
func (s *RecordStore) RemoveAt(ctx context.Context, index int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return s.copyLocked(), nil
	}

	removed := s.records[index]
	updated := make([]Record, 0, len(s.records)-1)
	updated = append(updated, s.records[:index]...)
	updated = append(updated, s.records[index+1:]...)
	if err := s.persistLocked(ctx, updated); err != nil {
		return nil, err
	}
	s.records = updated
	s.log.Info("record removed",
		zap.String("id", removed.ID),
		zap.String("client", removed.Client),
		zap.Int("index", index),
		zap.Int("total", len(updated)))
	return s.copyLocked(), nil
}

func (s *RecordStore) persistLocked(ctx context.Context, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := s.slot.Put(ctx, s.key, payload); err != nil {
		return fmt.Errorf("failed to persist records: %w", err)
	}
	return nil
}

func (s *RecordStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *RecordStore) At(index int) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return Record{}, false
	}
	return s.records[index], true
}

func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *RecordStore) copyLocked() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
