package trace

import (
	"fmt"
	"strings"
)

// ValidatePrompt checks a raw user prompt before any stage runs: it must
// contain at least one non-whitespace byte and must not exceed the
// configured byte limit. The prompt is otherwise opaque text.
func ValidatePrompt(text string, maxBytes int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: prompt contains no text", ErrPromptEmpty)
	}
	if maxBytes > 0 && len(text) > maxBytes {
		return fmt.Errorf("%w: prompt is %d bytes, limit is %d", ErrPromptTooLarge, len(text), maxBytes)
	}
	return nil
}

// ErrPromptEmpty is the sentinel wrapped by ValidatePrompt for an empty or
// whitespace-only prompt. Like ErrPromptTooLarge it is fatal and
// boundary-only: callers surface it before any stage runs, as a 400.
var ErrPromptEmpty = fmt.Errorf("prompt is empty")

// ErrPromptTooLarge is the sentinel wrapped by ValidatePrompt. Callers at the
// HTTP boundary match it to produce a 413 response with ErrorKind PromptTooLarge.
var ErrPromptTooLarge = fmt.Errorf("prompt exceeds configured byte limit")

// ErrConfigMissing is the sentinel a boundary check returns when required
// configuration (e.g. a model provider's API key) is absent. Callers at the
// HTTP boundary match it to produce a 500 response with ErrorKind
// ConfigMissing and an explicit message, per spec.md §6.
var ErrConfigMissing = fmt.Errorf("required configuration is missing")
