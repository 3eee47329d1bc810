package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"medisoft.com/zorgapp/internal/store"
)

var errBackend = errors.New("backend unavailable")

// fakeCollab records every call and fails the steps named in fail.
type fakeCollab struct {
	mu          sync.Mutex
	transcript  string
	translation Translation
	analysis    string
	fail        map[string]bool
	block       bool
	release     chan struct{}

	transcribeCalls int
	translateCalls  int
	analyseCalls    int
	lastAudio       []byte
	lastFilename    string
	lastAnalysed    string
	lastLanguage    string
}

func (f *fakeCollab) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	f.mu.Lock()
	f.transcribeCalls++
	f.lastAudio = append([]byte(nil), audio...)
	f.lastFilename = filename
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail["transcribe"] {
		return "", errBackend
	}
	return f.transcript, nil
}

func (f *fakeCollab) Translate(_ context.Context, text, language string) (Translation, error) {
	f.mu.Lock()
	f.translateCalls++
	f.lastLanguage = language
	f.mu.Unlock()
	if f.fail["translate"] {
		return Translation{}, errBackend
	}
	return f.translation, nil
}

func (f *fakeCollab) Analyse(_ context.Context, transcript, language string) (string, error) {
	f.mu.Lock()
	f.analyseCalls++
	f.lastAnalysed = transcript
	f.lastLanguage = language
	f.mu.Unlock()
	if f.fail["analyse"] {
		return "", errBackend
	}
	return f.analysis, nil
}

func (f *fakeCollab) collaborators() Collaborators {
	return Collaborators{Transcriber: f, Translator: f, Analyser: f}
}

type memSlot struct {
	data   map[string][]byte
	putErr error
}

func newMemSlot() *memSlot { return &memSlot{data: map[string][]byte{}} }

func (m *memSlot) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, store.ErrSlotEmpty
	}
	return v, nil
}

func (m *memSlot) Put(_ context.Context, key string, payload []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = append([]byte(nil), payload...)
	return nil
}

func (m *memSlot) Close() error { return nil }

var refNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func rec(client string, typ store.RecordType, age time.Duration, text string) store.Record {
	return store.Record{
		Type:               typ,
		Client:             client,
		OriginalTranscript: text,
		CreatedAt:          refNow.Add(-age),
	}
}
