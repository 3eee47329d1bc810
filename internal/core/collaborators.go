package core

import "context"

// Translation is what the translation collaborator returns.
type Translation struct {
	Text           string
	TranslatedFrom string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, language string) (Translation, error)
}

type Analyser interface {
	Analyse(ctx context.Context, transcript, language string) (string, error)
}

// Collaborators bundles the three remote capabilities. One provider usually
// implements all of them.
type Collaborators struct {
	Transcriber Transcriber
	Translator  Translator
	Analyser    Analyser
}

// Languages offered for intakes.
var Languages = []string{"NL", "EN", "TI", "AR"}

const DefaultLanguage = "NL"

func ValidLanguage(code string) bool {
	for _, l := range Languages {
		if l == code {
			return true
		}
	}
	return false
}
