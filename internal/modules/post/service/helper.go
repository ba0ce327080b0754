package service

import (
	"regexp"
	"strings"
)

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
)

// extractHashtags returns the lowercased, deduplicated tags referenced in the
// content, in order of first appearance.
func extractHashtags(content string) []string {
	return extract(hashtagPattern, content)
}

// extractMentions returns the lowercased, deduplicated handles referenced in
// the content. Handle resolution is case-insensitive.
func extractMentions(content string) []string {
	return extract(mentionPattern, content)
}

func extract(pattern *regexp.Regexp, content string) []string {
	matches := pattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		token := strings.ToLower(m[1])
		if !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
	}
	return out
}
