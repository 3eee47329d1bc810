package llm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"medisoft.com/zorgapp/internal/core"
)

const defaultGeminiModelName = "gemini-1.5-flash-latest"

// Gemini implements the transcription, translation and analysis collaborators
// on the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
	log       *zap.Logger
}

func NewGemini(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModelName
	}
	return &Gemini{client: client, modelName: modelName, log: log}, nil
}

func (g *Gemini) Close() {
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			g.log.Warn("error closing GenAI client", zap.Error(err))
		} else {
			g.log.Info("GenAI client closed")
		}
	}
}

func (g *Gemini) model(systemInstruction string, temperature float32) *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.modelName)
	if systemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemInstruction)},
		}
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: &temperature,
	}
	return model
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio to transcribe")
	}
	model := g.model("", 0)
	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: audioMIMEType(filename), Data: audio},
		genai.Text(transcribeInstruction))
	if err != nil {
		return "", fmt.Errorf("gemini transcription request failed: %w", err)
	}
	return responseText(resp)
}

func (g *Gemini) Translate(ctx context.Context, text, language string) (core.Translation, error) {
	model := g.model(translateSystemInstruction, 0.1)
	model.ResponseMIMEType = "application/json"
	resp, err := model.GenerateContent(ctx, genai.Text(translatePrompt(text, language)))
	if err != nil {
		return core.Translation{}, fmt.Errorf("gemini translation request failed: %w", err)
	}
	reply, err := responseText(resp)
	if err != nil {
		return core.Translation{}, err
	}
	return parseTranslation(reply)
}

func (g *Gemini) Analyse(ctx context.Context, transcript, language string) (string, error) {
	model := g.model(analyseSystemInstruction, 0.3)
	resp, err := model.GenerateContent(ctx, genai.Text(analysePrompt(transcript, language)))
	if err != nil {
		return "", fmt.Errorf("gemini analysis request failed: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini response had no text parts")
	}
	return strings.TrimSpace(text.String()), nil
}

func audioMIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mp3"
	case ".ogg":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return "audio/webm"
	}
}
