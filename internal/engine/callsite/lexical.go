package callsite

import (
	"regexp"

	"apidrift/internal/engine/parser"
)

// callHead matches `name(` or `a . b . c (` not preceded by a name or dot.
var callHead = regexp.MustCompile(`(?:^|[^a-zA-Z0-9_.])((?:[a-zA-Z_][a-zA-Z0-9_]*(?:\s*\.\s*[a-zA-Z_][a-zA-Z0-9_]*)*)\s*)\(`)

// FirstCallName returns the first call-looking head in text with whitespace
// removed.
func FirstCallName(text string) (string, bool) {
	match := callHead.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return parser.StripSpace(match[1]), true
}
