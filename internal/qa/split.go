package qa

import (
	"regexp"
	"strings"
)

var andRe = regexp.MustCompile(`\band\b`)

// Split breaks a compound question on the word "and". Parts are trimmed,
// empty parts dropped, and repeats collapsed keeping first-seen order.
func Split(question string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range andRe.Split(question, -1) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
