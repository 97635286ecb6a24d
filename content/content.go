// Package content serves the article hierarchy: articles, chapters, topics,
// contents and the PDFs attached to any of them.
package content

import (
	"bytes"
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"edumedia/auth"
	"edumedia/cache"
	"edumedia/cascade"
	"edumedia/logger"
	"edumedia/models"
	"edumedia/storage"
)

const (
	treeNamespace = "trees"
	treeMaxAge    = time.Hour
)

// markdown renderer for content bodies
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // bodies are written by the admin
	),
)

type ContentModule struct {
	db       *gorm.DB
	engine   *cascade.Engine
	blobs    storage.BlobStore
	cache    *cache.Store
	guard    *auth.Guard
	validate *validator.Validate
	log      *logger.Logger
}

func NewContentModule(db *gorm.DB, engine *cascade.Engine, blobs storage.BlobStore, store *cache.Store, guard *auth.Guard, validate *validator.Validate, log *logger.Logger) *ContentModule {
	m := &ContentModule{
		db:       db,
		engine:   engine,
		blobs:    blobs,
		cache:    store,
		guard:    guard,
		validate: validate,
		log:      log.With("module", "ContentModule"),
	}
	engine.OnDeleted(func(ctx context.Context, ref models.ParentRef) {
		m.invalidate()
	})
	return m
}

func (m *ContentModule) RegisterRoutes(api *gin.RouterGroup) {
	for _, lv := range m.levels() {
		g := api.Group(lv.path)
		{
			g.GET("", m.list(lv))
			g.GET("/:id", m.get(lv))
			g.POST("", m.adminOnly(m.create(lv))...)
			g.PUT("/reorder", m.adminOnly(m.reorder(lv))...)
			g.PUT("/:id", m.adminOnly(m.update(lv))...)
			g.DELETE("/:id", m.adminOnly(m.remove(lv))...)
		}
	}

	treeKey := func(c *gin.Context) string { return c.Param("id") }
	api.GET("/articles/:id/tree", cache.Middleware(m.cache, treeNamespace, treeKey, treeMaxAge, m.log), m.tree)

	pdfs := api.Group("/pdfs")
	{
		pdfs.GET("", m.listPdfs)
		pdfs.POST("", m.adminOnly(m.uploadPdf)...)
		pdfs.DELETE("/:id", m.adminOnly(m.deletePdf)...)
	}
}

func (m *ContentModule) adminOnly(h gin.HandlerFunc) []gin.HandlerFunc {
	return append(m.guard.Admin(), h)
}

// invalidate drops every cached tree; any write can change one.
func (m *ContentModule) invalidate() {
	if err := m.cache.ClearNamespace(treeNamespace); err != nil {
		m.log.Warn("failed to clear tree cache", "error", err)
	}
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}
