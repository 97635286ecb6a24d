package cache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/logger"
)

func TestPath(t *testing.T) {
	s := NewStore("/tmp/c")
	p := s.Path("trees", "abc")
	assert.True(t, strings.HasPrefix(p, filepath.Join("/tmp/c", "trees", "abc_")))
	assert.True(t, strings.HasSuffix(p, ".json"))
	assert.Equal(t, p, s.Path("trees", "abc"))
	assert.NotEqual(t, p, s.Path("other", "abc"))

	escaped := s.Path("trees", "../../etc")
	assert.Equal(t, filepath.Join("/tmp/c", "trees"), filepath.Dir(escaped))
}

func TestWriteRead(t *testing.T) {
	s := NewStore(t.TempDir())

	_, found := s.Read("trees", "a1", time.Minute)
	assert.False(t, found)

	require.NoError(t, s.Write("trees", "a1", []byte(`{"ok":true}`)))
	data, found := s.Read("trees", "a1", time.Minute)
	require.True(t, found)
	assert.Equal(t, `{"ok":true}`, string(data))

	_, found = s.Read("trees", "b2", time.Minute)
	assert.False(t, found)
}

func TestReadExpired(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Write("trees", "old", []byte("{}")))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(s.Path("trees", "old"), past, past))

	_, found := s.Read("trees", "old", time.Hour)
	assert.False(t, found)

	require.NoError(t, s.ClearOld(time.Hour))
	_, err := os.Stat(s.Path("trees", "old"))
	assert.True(t, os.IsNotExist(err))
}

func TestClearNamespace(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Write("trees", "a", []byte("{}")))
	require.NoError(t, s.Write("trees", "b", []byte("{}")))
	require.NoError(t, s.Write("keep", "c", []byte("{}")))

	require.NoError(t, s.ClearNamespace("trees"))

	_, found := s.Read("trees", "a", time.Hour)
	assert.False(t, found)
	_, found = s.Read("keep", "c", time.Hour)
	assert.True(t, found)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewStore(t.TempDir())
	calls := 0

	router := gin.New()
	router.GET("/tree/:id", Middleware(s, "trees", func(c *gin.Context) string { return c.Param("id") }, time.Hour, logger.NewNop()),
		func(c *gin.Context) {
			calls++
			if c.Param("id") == "missing" {
				c.JSON(http.StatusNotFound, gin.H{"success": false})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id")})
		})

	serve := func(path string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := serve("/tree/a1")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	w = serve("/tree/a1")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"success":true,"id":"a1"}`, w.Body.String())
	assert.Equal(t, 1, calls)

	serve("/tree/missing")
	serve("/tree/missing")
	assert.Equal(t, 3, calls, "errors are not cached")

	require.NoError(t, s.ClearNamespace("trees"))
	serve("/tree/a1")
	assert.Equal(t, 4, calls)
}
