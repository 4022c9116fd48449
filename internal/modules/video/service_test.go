package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	tags := normalizeTags([]string{" TrackDay ", "trackday", "Chain-Care", ""})
	assert.Equal(t, []string{"trackday", "chain-care"}, tags)
}

func TestNormalizeTagsEmptyInput(t *testing.T) {
	assert.Empty(t, normalizeTags(nil))
	assert.Empty(t, normalizeTags([]string{"", "  "}))
}

func TestRegexEscape(t *testing.T) {
	assert.Equal(t, `r1250gs`, regexEscape("r1250gs"))
	assert.Equal(t, `how\?`, regexEscape("how?"))
	assert.Equal(t, `a\.b\*c`, regexEscape("a.b*c"))
}
