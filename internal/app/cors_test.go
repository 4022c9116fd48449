package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"motohub.app", "*.motohub.app", "localhost:*"}

	assert.True(t, originAllowed(patterns, "https://motohub.app"))
	assert.True(t, originAllowed(patterns, "https://ride.motohub.app"))
	assert.True(t, originAllowed(patterns, "http://localhost:5173"))

	assert.False(t, originAllowed(patterns, "https://evil.example"))
	assert.False(t, originAllowed(patterns, "https://motohub.app.evil.example"))
	assert.False(t, originAllowed(nil, "https://motohub.app"))
}
