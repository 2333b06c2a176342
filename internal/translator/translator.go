// Package translator turns free-text operator prompts into decoded intents
// through an external structured-output model.
package translator

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fekuna/spaceflow-wms-service/internal/intent"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

const (
	MaxPayloadBytes = 2000
	MaxPromptRunes  = 500
)

// Translator returns a decoded but not yet validated intent.
type Translator interface {
	Translate(ctx context.Context, prompt string) (*model.Intent, error)
}

// CheckPrompt rejects prompts that must never reach the translator and
// returns the trimmed prompt otherwise.
func CheckPrompt(prompt string) (string, error) {
	if len(prompt) > MaxPayloadBytes {
		return "", intent.Errorf(intent.ReasonPayloadTooLarge, "prompt is %d bytes, limit is %d", len(prompt), MaxPayloadBytes)
	}
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", intent.Errorf(intent.ReasonPromptMissing, "prompt is empty")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxPromptRunes {
		return "", intent.Errorf(intent.ReasonPromptTooLong, "prompt has %d characters, limit is %d", n, MaxPromptRunes)
	}
	return trimmed, nil
}
