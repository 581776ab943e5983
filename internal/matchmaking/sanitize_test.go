package matchmaking_test

import (
	"testing"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/stretchr/testify/assert"
)

func TestSanitizer_ChatNeverEmitsTags(t *testing.T) {
	s := matchmaking.NewSanitizer()

	for _, raw := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&lt;img src=x onerror=alert(1)&gt;",
		"<<b>script>x",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"<scr<script>ipt>alert(1)</script>",
		"<a href=\"javascript:alert(1)\">link</a>",
	} {
		t.Run(raw, func(t *testing.T) {
			text := s.Chat(raw)
			assert.NotContains(t, text, "<")
			assert.NotContains(t, text, ">")
		})
	}
}

func TestSanitizer_ChatKeepsPlainText(t *testing.T) {
	s := matchmaking.NewSanitizer()

	assert.Equal(t, "fish & chips?", s.Chat("fish & chips?"))
	assert.Equal(t, "it's \"fine\"", s.Chat("it's \"fine\""))
	assert.Equal(t, "link", s.Chat("<a href=\"javascript:alert(1)\">link</a>"))
}
