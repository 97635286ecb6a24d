package videos

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/auth/authtest"
	"edumedia/common"
	"edumedia/database/databasetest"
	"edumedia/logger"
	"edumedia/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		id       string
		ok       bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"dQw4w9WgXcQ", ProviderYouTube, "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=short", ProviderExternal, "", true},
		{"https://vimeo.com/76979871", ProviderExternal, "", true},
		{"ftp://example.com/video.mp4", "", "", false},
		{"not a url", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.provider, n.Provider)
			assert.Equal(t, tt.id, n.VideoID)
			if tt.provider == ProviderYouTube {
				assert.Equal(t, "https://www.youtube.com/embed/"+tt.id, n.EmbedURL)
			}
			if tt.provider == ProviderExternal {
				assert.Equal(t, tt.in, n.EmbedURL)
			}
		})
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *authtest.Kit) {
	gin.SetMode(gin.TestMode)
	kit := authtest.New(t)
	router := gin.New()
	NewVideosModule(databasetest.New(t), kit.Guard, logger.NewNop()).RegisterRoutes(router.Group("/api"))
	return router, kit
}

func send(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVideoLifecycle(t *testing.T) {
	router, kit := setupTestRouter(t)

	w := send(router, "POST", "/api/videos", kit.AdminToken, gin.H{"title": "Intro"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(router, "POST", "/api/videos", kit.AdminToken, gin.H{"title": "Intro", "url": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(router, "POST", "/api/videos", kit.UserToken, gin.H{"url": "dQw4w9WgXcQ"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(router, "POST", "/api/videos", kit.AdminToken, gin.H{"title": "Intro", "url": "https://youtu.be/dQw4w9WgXcQ"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data models.VideoReference `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	video := created.Data
	assert.Equal(t, ProviderYouTube, video.Provider)
	assert.Equal(t, "dQw4w9WgXcQ", video.VideoID)

	w = send(router, "PUT", "/api/videos/"+video.ID, kit.AdminToken, gin.H{"url": "https://vimeo.com/76979871"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Data models.VideoReference `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Intro", updated.Data.Title)
	assert.Equal(t, ProviderExternal, updated.Data.Provider)
	assert.Empty(t, updated.Data.VideoID)

	w = send(router, "GET", "/api/videos", "", nil)
	assert.Len(t, common.ExtractList(w.Body.Bytes()), 1)

	w = send(router, "DELETE", "/api/videos/"+video.ID, kit.AdminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = send(router, "DELETE", "/api/videos/"+video.ID, kit.AdminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
