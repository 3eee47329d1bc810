// Package remote talks to the care backend that performs transcription,
// translation and analysis.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"medisoft.com/zorgapp/internal/core"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient uses http.DefaultClient when httpClient is nil. Deadlines come from
// the request context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

type translateRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type translateResponse struct {
	Translated     string `json:"translated"`
	TranslatedFrom string `json:"translated_from"`
}

type analyseRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

type analyseResponse struct {
	Analysis string `json:"analysis"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Code, e.Body)
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	var out transcribeResponse
	if err := c.do(ctx, "/transcribe", mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	return out.Transcript, nil
}

func (c *Client) Translate(ctx context.Context, text, language string) (core.Translation, error) {
	var out translateResponse
	if err := c.postJSON(ctx, "/translate", translateRequest{Text: text, Language: language}, &out); err != nil {
		return core.Translation{}, err
	}
	return core.Translation{Text: out.Translated, TranslatedFrom: out.TranslatedFrom}, nil
}

func (c *Client) Analyse(ctx context.Context, transcript, language string) (string, error) {
	var out analyseResponse
	if err := c.postJSON(ctx, "/analyse", analyseRequest{Transcript: transcript, Language: language}, &out); err != nil {
		return "", err
	}
	return out.Analysis, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}
	return c.do(ctx, endpoint, "application/json", bytes.NewReader(payload), out)
}

func (c *Client) do(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
