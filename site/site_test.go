package site

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/database/databasetest"
	"edumedia/logger"
	"edumedia/models"
)

func TestSitemap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := databasetest.New(t)
	second := &models.Article{Title: "Second", Order: 2}
	first := &models.Article{Title: "First & foremost", Order: 1}
	require.NoError(t, db.Create(second).Error)
	require.NoError(t, db.Create(first).Error)
	folder := &models.GalleryFolder{Title: "Trip"}
	require.NoError(t, db.Create(folder).Error)

	router := gin.New()
	NewSiteModule(db, "https://edumedia.example", logger.NewNop()).RegisterRoutes(router)

	req, _ := http.NewRequest("GET", "/sitemap.xml", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")

	var set urlSet
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &set))
	locs := []string{}
	for _, u := range set.URLs {
		locs = append(locs, u.Loc)
	}
	assert.Equal(t, []string{
		"https://edumedia.example/",
		"https://edumedia.example/articles",
		"https://edumedia.example/gallery",
		"https://edumedia.example/articles/" + first.ID,
		"https://edumedia.example/articles/" + second.ID,
		"https://edumedia.example/gallery/" + folder.ID,
	}, locs)
	assert.NotEmpty(t, set.URLs[3].LastMod)
}
