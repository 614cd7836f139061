package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Translator translation backend contract
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// StubTranslator stands in for a real translation service. Text already in the
// target language comes back unchanged.
type StubTranslator struct{}

// Translate tags text with the target language
func (StubTranslator) Translate(_ context.Context, text, targetLanguage string) (string, error) {
	target := strings.ToLower(strings.TrimSpace(targetLanguage))
	if text != "" {
		info := whatlanggo.Detect(text)
		if info.IsReliable() && info.Lang.Iso6391() == target {
			return text, nil
		}
	}
	return fmt.Sprintf("[Translated to %s] %s", targetLanguage, text), nil
}
