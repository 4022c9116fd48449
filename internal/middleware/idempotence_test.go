package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldSkipIdempotence(t *testing.T) {
	skipped := []string{
		"/api/v1/auth/login",
		"/api/v1/auth/register",
		"/api/v1/auth/refresh",
		"/api/v1/alerts/665f1c9aa1b2c3d4e5f60718/upvote",
		"/api/v1/alerts/665f1c9aa1b2c3d4e5f60718/downvote",
		"/api/v1/posts/665f1c9aa1b2c3d4e5f60718/like",
		"/api/v1/videos/665f1c9aa1b2c3d4e5f60718/like",
	}
	for _, p := range skipped {
		require.True(t, shouldSkipIdempotence(http.MethodPost, p), p)
	}

	guarded := []string{
		"/api/v1/posts",
		"/api/v1/garages",
		"/api/v1/bookings",
		"/api/v1/alerts",
	}
	for _, p := range guarded {
		require.False(t, shouldSkipIdempotence(http.MethodPost, p), p)
	}

	// GET never reaches the guard in the first place.
	require.False(t, shouldSkipIdempotence(http.MethodGet, "/api/v1/posts/1/like"))
}
