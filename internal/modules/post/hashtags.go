package post

import (
	"regexp"
	"strings"
)

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags pulls #tags out of post content, lowercased and deduplicated
// in order of first appearance. The leading # is stripped.
func ExtractHashtags(content string) []string {
	matches := hashtagRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
