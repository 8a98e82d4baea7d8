package ai

import "context"

// Translator turns one lyric line into the target language.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error)
}
