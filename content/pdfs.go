package content

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/models"
	"edumedia/storage"
)

const maxPdfSize = 25 << 20

func (m *ContentModule) listPdfs(c *gin.Context) {
	q := m.db.WithContext(c.Request.Context()).Order("created_at ASC")
	if t := c.Query("parentType"); t != "" {
		if !models.ParentType(t).Valid() {
			common.Fail(c, m.log, apierr.Validation("parentType must be one of: article, chapter, topic, content"))
			return
		}
		q = q.Where("parent_type = ?", t)
	}
	if id := c.Query("parentId"); id != "" {
		q = q.Where("parent_id = ?", id)
	}
	pdfs := []models.PdfAttachment{}
	if err := q.Find(&pdfs).Error; err != nil {
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	common.OK(c, pdfs)
}

func (m *ContentModule) uploadPdf(c *gin.Context) {
	ctx := c.Request.Context()
	ref := models.ParentRef{
		Type: models.ParentType(strings.ToLower(c.PostForm("parentType"))),
		ID:   strings.TrimSpace(c.PostForm("parentId")),
	}
	if !ref.Type.Valid() {
		common.Fail(c, m.log, apierr.Validation("parentType must be one of: article, chapter, topic, content"))
		return
	}
	if ref.ID == "" {
		common.Fail(c, m.log, apierr.Validation("parentId is required"))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, m.log, apierr.Validation("file is required"))
		return
	}
	if file.Size > maxPdfSize {
		common.Fail(c, m.log, apierr.Validation("File too large"))
		return
	}
	if !isPDF(file) {
		common.Fail(c, m.log, apierr.Validation("Only PDF files are allowed"))
		return
	}

	ok, err := m.engine.Exists(ctx, ref)
	if err != nil {
		common.Fail(c, m.log, err)
		return
	}
	if !ok {
		common.Fail(c, m.log, apierr.NotFound(ref.Type.Label()+" not found"))
		return
	}

	obj, err := storage.PutFile(ctx, m.blobs, storage.JoinKey("pdfs", string(ref.Type), ref.ID), file)
	if err != nil {
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}
	att := &models.PdfAttachment{
		ParentType:   ref.Type,
		ParentID:     ref.ID,
		Title:        title,
		Description:  c.PostForm("description"),
		URL:          obj.URL,
		StoredName:   obj.Key,
		OriginalName: file.Filename,
		Size:         obj.Size,
		MimeType:     "application/pdf",
	}
	if err := m.db.WithContext(ctx).Create(att).Error; err != nil {
		storage.DeleteQuietly(ctx, m.blobs, obj.Key, m.log)
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	m.invalidate()
	common.Created(c, "PDF uploaded", att)
}

func (m *ContentModule) deletePdf(c *gin.Context) {
	if err := m.engine.DeletePdf(c.Request.Context(), c.Param("id")); err != nil {
		common.Fail(c, m.log, err)
		return
	}
	common.Message(c, "PDF deleted")
}

func isPDF(file *multipart.FileHeader) bool {
	ct, err := storage.DetectType(file)
	return err == nil && ct == "application/pdf"
}
