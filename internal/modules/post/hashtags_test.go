package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHashtags(t *testing.T) {
	tags := ExtractHashtags("Sunday ride #TrackDay with the crew #ridesafe")
	assert.Equal(t, []string{"trackday", "ridesafe"}, tags)
}

func TestExtractHashtagsDeduplicates(t *testing.T) {
	tags := ExtractHashtags("#moto #MOTO #Moto")
	assert.Equal(t, []string{"moto"}, tags)
}

func TestExtractHashtagsNoTags(t *testing.T) {
	tags := ExtractHashtags("just a plain post, no tags here")
	assert.Empty(t, tags)
	assert.NotNil(t, tags)
}

func TestExtractHashtagsStopsAtPunctuation(t *testing.T) {
	tags := ExtractHashtags("crash on the b96! #warning: slippery #road.")
	assert.Equal(t, []string{"warning", "road"}, tags)
}

func TestExtractHashtagsKeepsDigitsAndUnderscore(t *testing.T) {
	tags := ExtractHashtags("#r1250gs is a beast #two_wheels")
	assert.Equal(t, []string{"r1250gs", "two_wheels"}, tags)
}
