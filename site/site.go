package site

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edumedia/logger"
	"edumedia/models"
)

type SiteModule struct {
	db      *gorm.DB
	baseURL string
	log     *logger.Logger
}

func NewSiteModule(db *gorm.DB, baseURL string, log *logger.Logger) *SiteModule {
	return &SiteModule{db: db, baseURL: baseURL, log: log.With("module", "SiteModule")}
}

func (s *SiteModule) RegisterRoutes(router gin.IRoutes) {
	router.GET("/sitemap.xml", s.sitemap)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

func (s *SiteModule) sitemap(c *gin.Context) {
	ctx := c.Request.Context()
	set := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: s.baseURL + "/", ChangeFreq: "weekly", Priority: "1.0"},
			{Loc: s.baseURL + "/articles", ChangeFreq: "daily", Priority: "0.8"},
			{Loc: s.baseURL + "/gallery", ChangeFreq: "weekly", Priority: "0.6"},
		},
	}

	var articles []models.Article
	if err := s.db.WithContext(ctx).Order("sort_order ASC, created_at ASC").Find(&articles).Error; err != nil {
		s.log.Error("sitemap: failed to load articles", "error", err)
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}
	for _, a := range articles {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.baseURL + "/articles/" + a.ID,
			LastMod:    a.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}

	var folders []models.GalleryFolder
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&folders).Error; err != nil {
		s.log.Error("sitemap: failed to load gallery folders", "error", err)
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}
	for _, f := range folders {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.baseURL + "/gallery/" + f.ID,
			LastMod:    f.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.5",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		s.log.Error("sitemap: encode failed", "error", err)
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), body...))
}
