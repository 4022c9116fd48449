package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipCachePathMatchesPrefixes(t *testing.T) {
	prefixes := []string{"/api/v1/auth", "/api/v1/bookings"}

	assert.True(t, skipCachePath("/api/v1/auth/login", prefixes))
	assert.True(t, skipCachePath("/api/v1/bookings", prefixes))
	assert.False(t, skipCachePath("/api/v1/garages", prefixes))
	assert.False(t, skipCachePath("/api/v1/garages", nil))
}

func TestCacheableRespectsCacheControl(t *testing.T) {
	plain := http.Header{}
	assert.True(t, cacheable(http.StatusOK, plain))
	assert.False(t, cacheable(http.StatusNotFound, plain))

	private := http.Header{}
	private.Set("Cache-Control", "private, max-age=0")
	assert.False(t, cacheable(http.StatusOK, private))

	noStore := http.Header{}
	noStore.Set("Cache-Control", "no-store")
	assert.False(t, cacheable(http.StatusOK, noStore))
}

func TestBodyRecorderStopsAtLimit(t *testing.T) {
	rec := &bodyRecorder{limit: 8}
	rec.record([]byte("12345"))
	assert.False(t, rec.overflow)

	rec.record([]byte("67890"))
	assert.True(t, rec.overflow)
	assert.Equal(t, []byte("12345"), rec.body)
}
