package media

import (
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/auth"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
	"edumedia/storage"
)

const maxMediaSize = 200 << 20

type MediaModule struct {
	db    *gorm.DB
	blobs storage.BlobStore
	guard *auth.Guard
	log   *logger.Logger
}

func NewMediaModule(db *gorm.DB, blobs storage.BlobStore, guard *auth.Guard, log *logger.Logger) *MediaModule {
	return &MediaModule{db: db, blobs: blobs, guard: guard, log: log.With("module", "MediaModule")}
}

func (m *MediaModule) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/media")
	{
		group.GET("", m.list)
		group.GET("/:id", m.get)
		group.POST("", append(m.guard.Admin(), m.upload)...)
		group.DELETE("/:id", append(m.guard.Admin(), m.remove)...)
	}
}

func (m *MediaModule) list(c *gin.Context) {
	q := m.db.WithContext(c.Request.Context()).Order("created_at DESC")
	if t := c.Query("type"); t != "" {
		if !models.MediaType(t).Valid() {
			common.Fail(c, m.log, apierr.Validation("type must be one of: image, video, banner, audio"))
			return
		}
		q = q.Where("type = ?", t)
	}
	assets := []models.MediaAsset{}
	if err := q.Find(&assets).Error; err != nil {
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	common.OK(c, assets)
}

func (m *MediaModule) get(c *gin.Context) {
	var asset models.MediaAsset
	if err := m.db.WithContext(c.Request.Context()).First(&asset, "id = ?", c.Param("id")).Error; err != nil {
		common.Fail(c, m.log, common.NotFoundOr(err, "Media not found"))
		return
	}
	common.OK(c, asset)
}

func (m *MediaModule) upload(c *gin.Context) {
	ctx := c.Request.Context()
	mediaType := models.MediaType(strings.ToLower(c.PostForm("type")))
	if !mediaType.Valid() {
		common.Fail(c, m.log, apierr.Validation("type must be one of: image, video, banner, audio"))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, m.log, apierr.Validation("file is required"))
		return
	}
	if file.Size > maxMediaSize {
		common.Fail(c, m.log, apierr.Validation("File too large"))
		return
	}
	if !accepts(mediaType, file) {
		common.Fail(c, m.log, apierr.Validation("File does not match type "+string(mediaType)))
		return
	}

	up, err := storage.PutFile(ctx, m.blobs, storage.JoinKey("media", string(mediaType)), file)
	if err != nil {
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	asset := &models.MediaAsset{
		Type:         mediaType,
		URL:          up.URL,
		OriginalName: up.OriginalName,
		StoredName:   up.Key,
		Size:         up.Size,
		MimeType:     up.MimeType,
	}
	if err := m.db.WithContext(ctx).Create(asset).Error; err != nil {
		storage.DeleteQuietly(ctx, m.blobs, up.Key, m.log)
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	common.Created(c, "Media uploaded", asset)
}

func (m *MediaModule) remove(c *gin.Context) {
	ctx := c.Request.Context()
	db := m.db.WithContext(ctx)
	var asset models.MediaAsset
	if err := db.First(&asset, "id = ?", c.Param("id")).Error; err != nil {
		common.Fail(c, m.log, common.NotFoundOr(err, "Media not found"))
		return
	}
	storage.DeleteQuietly(ctx, m.blobs, asset.StoredName, m.log)
	if err := db.Delete(&models.MediaAsset{}, "id = ?", asset.ID).Error; err != nil {
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	common.Message(c, "Media deleted")
}

// accepts checks the sniffed content type against the declared media type.
func accepts(t models.MediaType, file *multipart.FileHeader) bool {
	ct, err := storage.DetectType(file)
	if err != nil {
		return false
	}
	switch t {
	case models.MediaImage, models.MediaBanner:
		return storage.IsImage(ct)
	case models.MediaVideo:
		return strings.HasPrefix(ct, "video/")
	case models.MediaAudio:
		return strings.HasPrefix(ct, "audio/")
	}
	return false
}
