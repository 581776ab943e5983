package matchmaking

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const MaxChatLength = 500

// maxSanitizePasses bounds the unescape/sanitize loop for deeply nested input.
const maxSanitizePasses = 8

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitizer turns raw chat input into plain text: markup is stripped, the
// result is trimmed and cut to MaxChatLength characters.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Chat returns the cleaned text. An empty result means the message is dropped.
// Entity-encoded or nested markup is decoded and stripped again until the text
// is stable; any angle bracket left after that is removed, so the plain text
// never carries a tag.
func (s *Sanitizer) Chat(raw string) string {
	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(html.UnescapeString(text)))
		if next == text {
			break
		}
		text = next
	}
	text = strings.TrimSpace(angleBrackets.Replace(text))

	runes := []rune(text)
	if len(runes) > MaxChatLength {
		text = strings.TrimSpace(string(runes[:MaxChatLength]))
	}
	return text
}
