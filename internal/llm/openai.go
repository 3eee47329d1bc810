package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"medisoft.com/zorgapp/internal/core"
)

// OpenAI implements the collaborators on an OpenAI-compatible API: Whisper for
// transcription, chat completions for translation and analysis.
type OpenAI struct {
	client             *openai.Client
	model              string
	transcriptionModel string
}

func NewOpenAI(apiKey, baseURL, model, transcriptionModel string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	return &OpenAI{
		client:             openai.NewClientWithConfig(config),
		model:              model,
		transcriptionModel: transcriptionModel,
	}
}

func (c *OpenAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio to transcribe")
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *OpenAI) Translate(ctx context.Context, text, language string) (core.Translation, error) {
	reply, err := c.complete(ctx, translateSystemInstruction, translatePrompt(text, language), 0.1)
	if err != nil {
		return core.Translation{}, err
	}
	return parseTranslation(reply)
}

func (c *OpenAI) Analyse(ctx context.Context, transcript, language string) (string, error) {
	return c.complete(ctx, analyseSystemInstruction, analysePrompt(transcript, language), 0.3)
}

func (c *OpenAI) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}
