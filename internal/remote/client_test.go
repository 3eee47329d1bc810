package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribeSendsMultipartAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "opname.webm", hdr.Filename)
		assert.Equal(t, "chunk1chunk2", string(data))

		json.NewEncoder(w).Encode(map[string]string{"transcript": "Goedemorgen"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	text, err := c.Transcribe(context.Background(), []byte("chunk1chunk2"), "opname.webm")
	require.NoError(t, err)
	assert.Equal(t, "Goedemorgen", text)
}

func TestTranslateWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"text": "selam", "language": "NL"}, req)

		w.Write([]byte(`{"translated":"hallo","translated_from":"TI"}`))
	}))
	defer srv.Close()

	tr, err := NewClient(srv.URL, nil).Translate(context.Background(), "selam", "NL")
	require.NoError(t, err)
	assert.Equal(t, "hallo", tr.Text)
	assert.Equal(t, "TI", tr.TranslatedFrom)
}

func TestAnalyseWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyse", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"transcript": "[Intake] x", "language": "NL"}, req)

		w.Write([]byte(`{"analysis":"zorgplan"}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, nil).Analyse(context.Background(), "[Intake] x", "NL")
	require.NoError(t, err)
	assert.Equal(t, "zorgplan", out)
}

func TestNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Analyse(context.Background(), "x", "NL")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "/analyse", se.Endpoint)
	assert.Contains(t, se.Body, "model overloaded")
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Translate(context.Background(), "x", "NL")
	assert.Error(t, err)
}

func TestContextDeadlineAbortsHungCall(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(srv.URL, nil).Analyse(ctx, "x", "NL")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
