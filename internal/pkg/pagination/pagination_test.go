package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestFromContextDefaults(t *testing.T) {
	q := FromContext(queryContext(t, ""))
	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultSize, q.Size)
}

func TestFromContextReadsLimit(t *testing.T) {
	q := FromContext(queryContext(t, "page=2&limit=25"))
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 25, q.Size)
}

func TestFromContextKeepsSizeAlias(t *testing.T) {
	q := FromContext(queryContext(t, "size=15"))
	assert.Equal(t, 15, q.Size)

	// limit wins when both are present.
	q = FromContext(queryContext(t, "limit=20&size=15"))
	assert.Equal(t, 20, q.Size)
}

func TestFromContextClampsOutOfRange(t *testing.T) {
	q := FromContext(queryContext(t, "page=0&limit=-5"))
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultSize, q.Size)

	q = FromContext(queryContext(t, "limit=5000"))
	assert.Equal(t, MaxSize, q.Size)
}
