package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"medisoft.com/zorgapp/internal/core"
)

const (
	translateSystemInstruction = "You translate transcripts of conversations between caregivers and clients. " +
		"Detect the source language and translate the text faithfully into the requested language. " +
		"Do not summarise or add anything. " +
		`Reply with JSON only, in the form {"translated": "...", "translated_from": "<language code>"}.`

	analyseSystemInstruction = "You are an assistant for care professionals. " +
		"Analyse the transcript or care reports you are given and write a concise analysis: " +
		"observations, risks, and concrete points for the care plan. " +
		"Only use information present in the text. If the text is insufficient, say so."

	transcribeInstruction = "Transcribe this audio recording verbatim. Return only the transcript text."
)

var languageNames = map[string]string{
	"NL": "Dutch",
	"EN": "English",
	"TI": "Tigrinya",
	"AR": "Arabic",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

func translatePrompt(text, language string) string {
	return fmt.Sprintf("Translate into %s (%s):\n\n%s", languageName(language), language, text)
}

func analysePrompt(transcript, language string) string {
	return fmt.Sprintf("Write the analysis in %s.\n\n%s", languageName(language), transcript)
}

type translationReply struct {
	Translated     string `json:"translated"`
	TranslatedFrom string `json:"translated_from"`
}

// parseTranslation reads the model's JSON reply, tolerating markdown code fences.
func parseTranslation(reply string) (core.Translation, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var out translationReply
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return core.Translation{}, fmt.Errorf("translation reply is not valid JSON: %w", err)
	}
	if out.Translated == "" {
		return core.Translation{}, fmt.Errorf("translation reply has no text")
	}
	return core.Translation{Text: out.Translated, TranslatedFrom: out.TranslatedFrom}, nil
}
