package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"medisoft.com/zorgapp/internal/auth"
	"medisoft.com/zorgapp/internal/core"
	"medisoft.com/zorgapp/internal/export"
	"medisoft.com/zorgapp/internal/store"
)

// MaxChunkBytes bounds a single uploaded audio chunk.
const MaxChunkBytes = 8 << 20

type APIHandler struct {
	care     *core.CareService
	issuer   *auth.Issuer
	operator auth.Operator
	log      *zap.Logger
	loc      *time.Location
	maxChunk int64
}

func NewAPIHandler(care *core.CareService, issuer *auth.Issuer, operator auth.Operator, loc *time.Location, log *zap.Logger) *APIHandler {
	if loc == nil {
		loc = time.Local
	}
	return &APIHandler{
		care:     care,
		issuer:   issuer,
		operator: operator,
		log:      log,
		loc:      loc,
		maxChunk: MaxChunkBytes,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if !h.operator.Authenticate(req.Username, req.Password) {
		h.log.Warn("failed login", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.issuer.Generate(req.Username)
	if err != nil {
		h.log.Error("failed to generate token", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// EntryResponse is a listed record with its snapshot index and local time.
type EntryResponse struct {
	Index       int          `json:"index"`
	Record      store.Record `json:"record"`
	DisplayTime string       `json:"displayTime"`
}

func (h *APIHandler) entries(list []core.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, EntryResponse{
			Index:       e.Index,
			Record:      e.Record,
			DisplayTime: e.Record.DisplayTime(h.loc),
		})
	}
	return out
}

func (h *APIHandler) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, h.entries(h.care.ListRecords(query)))
}

func (h *APIHandler) ReloadRecordsHandler(w http.ResponseWriter, r *http.Request) {
	h.care.Reload(r.Context())
	writeJSON(w, http.StatusOK, h.entries(h.care.ListRecords("")))
}

func indexParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

func (h *APIHandler) DeleteRecordHandler(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Index must be an integer")
		return
	}

	if _, err := h.care.DeleteRecord(r.Context(), index); err != nil {
		h.log.Error("failed to delete record", zap.Int("index", index), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete record")
		return
	}
	writeJSON(w, http.StatusOK, h.entries(h.care.ListRecords("")))
}

func (h *APIHandler) ExportRecordHandler(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Index must be an integer")
		return
	}
	record, ok := h.care.Record(index)
	if !ok {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, record); err != nil {
		h.log.Error("failed to export record", zap.Int("index", index), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export record")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileNameIn(record, h.loc)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *APIHandler) ListDossiersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.care.Dossiers())
}

type SummaryRequest struct {
	Client string `json:"client"`
}

type SummaryResponse struct {
	Client  string `json:"client"`
	Summary string `json:"summary"`
}

func (h *APIHandler) WeeklySummaryHandler(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Client == "" {
		writeError(w, http.StatusBadRequest, "Client is required")
		return
	}

	summary := h.care.WeeklySummary(r.Context(), req.Client)
	writeJSON(w, http.StatusOK, SummaryResponse{Client: req.Client, Summary: summary})
}

type CaptureResponse struct {
	State     core.CaptureState `json:"state"`
	Draft     core.Draft        `json:"draft"`
	Languages []string          `json:"languages"`
}

func (h *APIHandler) captureResponse() CaptureResponse {
	s := h.care.Session()
	return CaptureResponse{State: s.State(), Draft: s.Draft(), Languages: core.Languages}
}

// writeCaptureError maps session errors onto status codes.
func (h *APIHandler) writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrCaptureActive), errors.Is(err, core.ErrNotRecording):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrUnknownMode), errors.Is(err, core.ErrUnknownLanguage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("capture request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Capture request failed")
	}
}

func (h *APIHandler) CaptureStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.captureResponse())
}

type StartCaptureRequest struct {
	Mode     core.Mode `json:"mode"`
	Language string    `json:"language"`
}

func (h *APIHandler) StartCaptureHandler(w http.ResponseWriter, r *http.Request) {
	var req StartCaptureRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.care.Session().Start(req.Mode, strings.ToUpper(req.Language)); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.captureResponse())
}

func (h *APIHandler) CaptureChunkHandler(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxChunk))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Chunk too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read chunk: "+err.Error())
		return
	}
	if _, err := h.care.Session().Write(chunk); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) StopCaptureHandler(w http.ResponseWriter, r *http.Request) {
	draft, err := h.care.Session().Stop(r.Context())
	if err != nil {
		h.writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

type TranscriptRequest struct {
	Mode core.Mode `json:"mode"`
	Text string    `json:"text"`
}

func (h *APIHandler) SetTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s := h.care.Session()
	if req.Mode == "" {
		req.Mode = s.Draft().Mode
	}
	if err := s.SetOriginalTranscript(req.Mode, req.Text); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.captureResponse())
}

func (h *APIHandler) SaveCaptureHandler(w http.ResponseWriter, r *http.Request) {
	var req core.SaveDetails
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.care.Session().Save(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrCaptureActive) {
			h.writeCaptureError(w, err)
			return
		}
		h.log.Error("failed to save record",
			zap.String("client", req.Client),
			zap.String("operator", operatorFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save record")
		return
	}
	writeJSON(w, http.StatusCreated, EntryResponse{
		Index:       entry.Index,
		Record:      entry.Record,
		DisplayTime: entry.Record.DisplayTime(h.loc),
	})
}
