package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"medisoft.com/zorgapp/internal/store"
)

var (
	ErrCaptureActive   = errors.New("a capture is already in progress")
	ErrNotRecording    = errors.New("no capture is recording")
	ErrUnknownMode     = errors.New("mode must be intake or report")
	ErrUnknownLanguage = errors.New("unsupported language")
)

type CaptureState string

const (
	CaptureIdle       CaptureState = "idle"
	CaptureRecording  CaptureState = "recording"
	CaptureFinalizing CaptureState = "finalizing"
)

// Mode selects the flow a capture feeds: a guided intake (translate and
// analyse) or a free-form report (transcript only).
type Mode string

const (
	ModeIntake Mode = "intake"
	ModeReport Mode = "report"
)

func (m Mode) Valid() bool { return m == ModeIntake || m == ModeReport }

func (m Mode) RecordType() store.RecordType {
	if m == ModeIntake {
		return store.RecordIntake
	}
	return store.RecordReport
}

// AudioFileName is the name the recording is uploaded under.
const AudioFileName = "opname.webm"

// Draft is the candidate record filled in by a capture.
type Draft struct {
	Mode               Mode   `json:"mode"`
	Language           string `json:"language"`
	OriginalTranscript string `json:"originalTranscript"`
	Transcript         string `json:"transcript"`
	TranslatedFrom     string `json:"translatedFrom"`
	Analysis           string `json:"analysis"`
}

// SaveDetails are the fields the caregiver types next to a draft.
type SaveDetails struct {
	Client    string `json:"client"`
	BirthDate string `json:"birthDate"`
	Notes     string `json:"notes"`
	Tags      string `json:"tags"`
}

// Session sequences capture -> transcription -> translation -> analysis and
// saves the result. Only one capture can be active at a time.
type Session struct {
	records *store.RecordStore
	collab  Collaborators
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	state  CaptureState
	audio  bytes.Buffer
	chunks int
	draft  Draft
}

func NewSession(records *store.RecordStore, collab Collaborators, log *zap.Logger, callTimeout time.Duration) *Session {
	return &Session{
		records: records,
		collab:  collab,
		log:     log,
		timeout: callTimeout,
		state:   CaptureIdle,
		draft:   Draft{Mode: ModeIntake, Language: DefaultLanguage},
	}
}

func (s *Session) State() CaptureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Start begins buffering audio for a new draft. The previous draft is discarded.
func (s *Session) Start(mode Mode, language string) error {
	if !mode.Valid() {
		return ErrUnknownMode
	}
	if language == "" {
		language = DefaultLanguage
	}
	if !ValidLanguage(language) {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != CaptureIdle {
		return ErrCaptureActive
	}
	s.state = CaptureRecording
	s.audio.Reset()
	s.chunks = 0
	s.draft = Draft{Mode: mode, Language: language}
	s.log.Info("capture started", zap.String("mode", string(mode)), zap.String("language", language))
	return nil
}

// Write appends an encoded audio chunk. Empty chunks are ignored.
func (s *Session) Write(chunk []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != CaptureRecording {
		return 0, ErrNotRecording
	}
	if len(chunk) == 0 {
		return 0, nil
	}
	s.chunks++
	return s.audio.Write(chunk)
}

// Stop finalizes the recording and runs the collaborator pipeline. Failures of
// individual calls are logged and leave the later draft fields empty.
func (s *Session) Stop(ctx context.Context) (Draft, error) {
	s.mu.Lock()
	if s.state != CaptureRecording {
		s.mu.Unlock()
		return Draft{}, ErrNotRecording
	}
	s.state = CaptureFinalizing
	audio := bytes.Clone(s.audio.Bytes())
	s.audio.Reset()
	draft := s.draft
	chunks := s.chunks
	s.mu.Unlock()

	s.log.Info("capture stopped", zap.Int("chunks", chunks), zap.Int("bytes", len(audio)))
	draft = s.process(ctx, draft, audio)

	s.mu.Lock()
	s.draft = draft
	s.state = CaptureIdle
	s.mu.Unlock()
	return draft, nil
}

func (s *Session) process(ctx context.Context, draft Draft, audio []byte) Draft {
	transcript, err := s.transcribe(ctx, audio)
	if err != nil {
		s.log.Error("transcription failed", zap.Error(err))
		return draft
	}
	draft.OriginalTranscript = transcript

	if draft.Mode != ModeIntake {
		return draft
	}

	translation, err := s.translate(ctx, transcript, draft.Language)
	if err != nil {
		s.log.Error("translation failed", zap.String("language", draft.Language), zap.Error(err))
		return draft
	}
	draft.Transcript = translation.Text
	draft.TranslatedFrom = translation.TranslatedFrom

	analysis, err := s.analyse(ctx, translation.Text, draft.Language)
	if err != nil {
		s.log.Error("analysis failed", zap.Error(err))
		return draft
	}
	draft.Analysis = analysis
	return draft
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Session) transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.collab.Transcriber.Transcribe(ctx, audio, AudioFileName)
}

func (s *Session) translate(ctx context.Context, text, language string) (Translation, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.collab.Translator.Translate(ctx, text, language)
}

func (s *Session) analyse(ctx context.Context, text, language string) (string, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.collab.Analyser.Analyse(ctx, text, language)
}

// SetOriginalTranscript replaces the transcript with typed text. Reports accept
// typed input in place of, or in addition to, a recording.
func (s *Session) SetOriginalTranscript(mode Mode, text string) error {
	if !mode.Valid() {
		return ErrUnknownMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != CaptureIdle {
		return ErrCaptureActive
	}
	if s.draft.Mode != mode {
		s.draft = Draft{Mode: mode, Language: DefaultLanguage}
	}
	s.draft.OriginalTranscript = text
	return nil
}

// Save turns the current draft into a record and appends it. The draft is
// cleared once the record is persisted. The returned entry carries the index
// the record was appended at.
func (s *Session) Save(ctx context.Context, details SaveDetails) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != CaptureIdle {
		return Entry{}, ErrCaptureActive
	}

	d := s.draft
	candidate := store.Record{
		Type:               d.Mode.RecordType(),
		Client:             details.Client,
		BirthDate:          details.BirthDate,
		Transcript:         d.Transcript,
		OriginalTranscript: d.OriginalTranscript,
		TranslatedFrom:     d.TranslatedFrom,
		Analysis:           d.Analysis,
		Notes:              details.Notes,
		Tags:               details.Tags,
	}

	records, err := s.records.Append(ctx, candidate)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to save record: %w", err)
	}
	s.draft = Draft{Mode: d.Mode, Language: d.Language}
	last := len(records) - 1
	return Entry{Index: last, Record: records[last]}, nil
}
