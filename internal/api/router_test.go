package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"medisoft.com/zorgapp/internal/auth"
	"medisoft.com/zorgapp/internal/core"
	"medisoft.com/zorgapp/internal/store"
)

type fakeCollab struct {
	transcript string
	analysis   string
	failAll    bool
}

func (f *fakeCollab) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	if f.failAll {
		return "", errors.New("backend down")
	}
	return f.transcript, nil
}

func (f *fakeCollab) Translate(_ context.Context, text, _ string) (core.Translation, error) {
	if f.failAll {
		return core.Translation{}, errors.New("backend down")
	}
	return core.Translation{Text: "NL: " + text, TranslatedFrom: "TI"}, nil
}

func (f *fakeCollab) Analyse(_ context.Context, _, _ string) (string, error) {
	if f.failAll {
		return "", errors.New("backend down")
	}
	return f.analysis, nil
}

type testServer struct {
	srv     *httptest.Server
	handler *APIHandler
	token   string
	slot    *store.FileSlot
}

func newTestServer(t *testing.T, collab *fakeCollab) *testServer {
	t.Helper()
	log := zap.NewNop()

	slot, err := store.NewFileSlot(t.TempDir())
	require.NoError(t, err)
	records := store.NewRecordStore(slot, "zorg_data", log)
	records.Load(context.Background())

	c := core.Collaborators{Transcriber: collab, Translator: collab, Analyser: collab}
	summaries := core.NewSummaryService(collab, core.NewSummaryCache(), log, core.SummaryOptions{})
	session := core.NewSession(records, c, log, time.Second)
	care := core.NewCareService(records, summaries, session, log)

	hash, err := auth.HashPassword("welkom01")
	require.NoError(t, err)
	issuer := auth.NewIssuer("secret", time.Hour)
	h := NewAPIHandler(care, issuer, auth.Operator{Username: "zorg", PasswordHash: hash}, time.UTC, log)

	srv := httptest.NewServer(NewRouter(h, log))
	t.Cleanup(srv.Close)

	token, err := issuer.Generate("zorg")
	require.NoError(t, err)
	return &testServer{srv: srv, handler: h, token: token, slot: slot}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	resp, err := http.Get(ts.srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})

	resp, err := http.Post(ts.srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"username":"zorg","password":"welkom01"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	decodeBody(t, resp, &out)
	assert.NotEmpty(t, out["token"])

	bad, err := http.Post(ts.srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"username":"zorg","password":"nope"}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
}

func TestRecordsRequireToken(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})

	resp, err := http.Get(ts.srv.URL + "/api/records")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ts.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/records", nil).StatusCode)
}

func TestIntakeCaptureFlow(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{transcript: "selam", analysis: "zorgplan"})

	resp := ts.do(t, http.MethodPost, "/api/capture/start", map[string]string{"mode": "intake", "language": "nl"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// starting twice conflicts
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/capture/start", map[string]string{"mode": "intake"}).StatusCode)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/capture/chunk", []byte("webm-1")).StatusCode)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/capture/chunk", []byte("webm-2")).StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/capture/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft core.Draft
	decodeBody(t, resp, &draft)
	assert.Equal(t, "selam", draft.OriginalTranscript)
	assert.Equal(t, "NL: selam", draft.Transcript)
	assert.Equal(t, "TI", draft.TranslatedFrom)
	assert.Equal(t, "zorgplan", draft.Analysis)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/capture/stop", nil).StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/capture/save", core.SaveDetails{Client: "Jan de Vries", BirthDate: "1950-04-02", Tags: "diabetes"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved EntryResponse
	decodeBody(t, resp, &saved)
	assert.Equal(t, 0, saved.Index)
	assert.Equal(t, store.RecordIntake, saved.Record.Type)
	assert.Equal(t, "zorgplan", saved.Record.Analysis)
	assert.NotEmpty(t, saved.Record.ID)
	assert.NotEmpty(t, saved.DisplayTime)

	// persisted to the slot
	payload, err := ts.slot.Get(context.Background(), "zorg_data")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Jan de Vries")
}

func TestChunkWhileIdleConflicts(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/capture/chunk", []byte("x")).StatusCode)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestChunkReadErrors(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	ts.handler.maxChunk = 16
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/capture/start", map[string]string{"mode": "report"}).StatusCode)

	assert.Equal(t, http.StatusRequestEntityTooLarge,
		ts.do(t, http.MethodPost, "/api/capture/chunk", bytes.Repeat([]byte("a"), 64)).StatusCode)
	assert.Equal(t, http.StatusNoContent,
		ts.do(t, http.MethodPost, "/api/capture/chunk", []byte("small")).StatusCode)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/capture/chunk", failingReader{})
	ts.handler.CaptureChunkHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveReportsAppendedIndex(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	saveReport(t, ts, "Jan de Vries", "slept well")
	saveReport(t, ts, "Piet Bakker", "ate little")

	resp := ts.do(t, http.MethodPut, "/api/capture/transcript", map[string]string{"mode": "report", "text": "walked"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodPost, "/api/capture/save", core.SaveDetails{Client: "Jan de Vries"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var saved EntryResponse
	decodeBody(t, resp, &saved)
	assert.Equal(t, 2, saved.Index)
	assert.Equal(t, "walked", saved.Record.OriginalTranscript)
}

func TestStartRejectsUnknownModeAndLanguage(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/capture/start", map[string]string{"mode": "dictation"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/capture/start", map[string]string{"mode": "intake", "language": "FR"}).StatusCode)
}

func saveReport(t *testing.T, ts *testServer, client, text string) {
	t.Helper()
	resp := ts.do(t, http.MethodPut, "/api/capture/transcript", map[string]string{"mode": "report", "text": text})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodPost, "/api/capture/save", core.SaveDetails{Client: client})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestListFilterKeepsSnapshotIndex(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	saveReport(t, ts, "Jan de Vries", "slept well")
	saveReport(t, ts, "Piet Bakker", "ate little")
	saveReport(t, ts, "jan jansen", "walked")

	var entries []EntryResponse
	decodeBody(t, ts.do(t, http.MethodGet, "/api/records?q=JAN", nil), &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, 2, entries[1].Index)

	// deleting the second filtered entry removes jan jansen, not Piet Bakker
	resp := ts.do(t, http.MethodDelete, "/api/records/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "Jan de Vries", entries[0].Record.Client)
	assert.Equal(t, "Piet Bakker", entries[1].Record.Client)

	// out of range is a no-op
	resp = ts.do(t, http.MethodDelete, "/api/records/9", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &entries)
	assert.Len(t, entries, 2)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodDelete, "/api/records/abc", nil).StatusCode)
}

func TestExportRecord(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{})
	saveReport(t, ts, "Jan de Vries", "slept well")

	resp := ts.do(t, http.MethodGet, "/api/records/0/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Jan_de_Vries_report_")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/records/5/export", nil).StatusCode)
}

func TestDossiersAndWeeklySummary(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{analysis: "stable week"})
	saveReport(t, ts, "Jan de Vries", "slept well")

	var dossiers []core.Dossier
	decodeBody(t, ts.do(t, http.MethodGet, "/api/dossiers", nil), &dossiers)
	require.Len(t, dossiers, 1)
	assert.Equal(t, core.NoSummaryYet, dossiers[0].Summary)
	assert.Len(t, dossiers[0].Reports, 1)
	assert.Empty(t, dossiers[0].Intakes)

	var out SummaryResponse
	decodeBody(t, ts.do(t, http.MethodPost, "/api/dossiers/summary", SummaryRequest{Client: "Jan de Vries"}), &out)
	assert.Equal(t, "stable week", out.Summary)

	decodeBody(t, ts.do(t, http.MethodGet, "/api/dossiers", nil), &dossiers)
	assert.Equal(t, "stable week", dossiers[0].Summary)

	decodeBody(t, ts.do(t, http.MethodPost, "/api/dossiers/summary", SummaryRequest{Client: "Onbekend"}), &out)
	assert.Equal(t, core.NoActivitySummary, out.Summary)

	// an unknown name does not become a dossier
	decodeBody(t, ts.do(t, http.MethodGet, "/api/dossiers", nil), &dossiers)
	assert.Len(t, dossiers, 1)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/dossiers/summary", SummaryRequest{}).StatusCode)
}

func TestReloadFlushesSummaries(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{analysis: "stable week"})
	saveReport(t, ts, "Jan de Vries", "slept well")
	ts.do(t, http.MethodPost, "/api/dossiers/summary", SummaryRequest{Client: "Jan de Vries"})

	var entries []EntryResponse
	decodeBody(t, ts.do(t, http.MethodPost, "/api/records/reload", nil), &entries)
	assert.Len(t, entries, 1)

	var dossiers []core.Dossier
	decodeBody(t, ts.do(t, http.MethodGet, "/api/dossiers", nil), &dossiers)
	assert.Equal(t, core.NoSummaryYet, dossiers[0].Summary)
}

func TestStopWithFailingBackendStillReturnsDraft(t *testing.T) {
	ts := newTestServer(t, &fakeCollab{failAll: true})
	ts.do(t, http.MethodPost, "/api/capture/start", map[string]string{"mode": "intake"})
	ts.do(t, http.MethodPost, "/api/capture/chunk", []byte("webm"))

	resp := ts.do(t, http.MethodPost, "/api/capture/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft core.Draft
	decodeBody(t, resp, &draft)
	assert.Empty(t, draft.OriginalTranscript)

	var status CaptureResponse
	decodeBody(t, ts.do(t, http.MethodGet, "/api/capture", nil), &status)
	assert.Equal(t, core.CaptureIdle, status.State)
	assert.Equal(t, core.Languages, status.Languages)
}
