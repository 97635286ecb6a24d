package gallery

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/auth"
	"edumedia/cascade"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
	"edumedia/storage"
)

const maxImageSize = 15 << 20

type GalleryModule struct {
	db       *gorm.DB
	engine   *cascade.Engine
	blobs    storage.BlobStore
	guard    *auth.Guard
	validate *validator.Validate
	log      *logger.Logger
}

func NewGalleryModule(db *gorm.DB, engine *cascade.Engine, blobs storage.BlobStore, guard *auth.Guard, validate *validator.Validate, log *logger.Logger) *GalleryModule {
	return &GalleryModule{
		db:       db,
		engine:   engine,
		blobs:    blobs,
		guard:    guard,
		validate: validate,
		log:      log.With("module", "GalleryModule"),
	}
}

func (g *GalleryModule) RegisterRoutes(api *gin.RouterGroup) {
	admin := g.guard.Admin()
	group := api.Group("/gallery")
	{
		group.GET("/folders", g.listFolders)
		group.GET("/folders/:id", g.getFolder)
		group.POST("/folders", append(admin, g.createFolder)...)
		group.PUT("/folders/:id", append(admin, g.updateFolder)...)
		group.DELETE("/folders/:id", append(admin, g.deleteFolder)...)

		group.GET("/folders/:id/images", g.listImages)
		group.POST("/folders/:id/images", append(admin, g.uploadImages)...)
		group.DELETE("/images/:id", append(admin, g.deleteImage)...)
	}
}

type folderInput struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

func (in folderInput) apply(f *models.GalleryFolder) {
	if in.Title != nil {
		f.Title = *in.Title
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if in.ThumbnailURL != nil {
		f.ThumbnailURL = *in.ThumbnailURL
	}
}

func (g *GalleryModule) listFolders(c *gin.Context) {
	folders := []models.GalleryFolder{}
	if err := g.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&folders).Error; err != nil {
		common.Fail(c, g.log, apierr.Internal(err))
		return
	}
	common.OK(c, folders)
}

func (g *GalleryModule) getFolder(c *gin.Context) {
	folder, err := g.findFolder(c, c.Param("id"))
	if err != nil {
		common.Fail(c, g.log, err)
		return
	}
	common.OK(c, folder)
}

func (g *GalleryModule) createFolder(c *gin.Context) {
	var in folderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, g.log, apierr.Validation("Invalid request body"))
		return
	}
	folder := &models.GalleryFolder{}
	in.apply(folder)
	if err := g.validate.Struct(folder); err != nil {
		common.Fail(c, g.log, common.ValidationError(err))
		return
	}
	if err := g.db.WithContext(c.Request.Context()).Create(folder).Error; err != nil {
		common.Fail(c, g.log, apierr.Internal(err))
		return
	}
	common.Created(c, "Gallery folder created", folder)
}

func (g *GalleryModule) updateFolder(c *gin.Context) {
	folder, err := g.findFolder(c, c.Param("id"))
	if err != nil {
		common.Fail(c, g.log, err)
		return
	}
	var in folderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, g.log, apierr.Validation("Invalid request body"))
		return
	}
	in.apply(folder)
	if err := g.validate.Struct(folder); err != nil {
		common.Fail(c, g.log, common.ValidationError(err))
		return
	}
	if err := g.db.WithContext(c.Request.Context()).Save(folder).Error; err != nil {
		common.Fail(c, g.log, apierr.Internal(err))
		return
	}
	common.OK(c, folder)
}

func (g *GalleryModule) deleteFolder(c *gin.Context) {
	if err := g.engine.DeleteGalleryFolder(c.Request.Context(), c.Param("id")); err != nil {
		common.Fail(c, g.log, err)
		return
	}
	common.Message(c, "Gallery folder deleted (cascade)")
}

func (g *GalleryModule) listImages(c *gin.Context) {
	if _, err := g.findFolder(c, c.Param("id")); err != nil {
		common.Fail(c, g.log, err)
		return
	}
	images := []models.GalleryImage{}
	err := g.db.WithContext(c.Request.Context()).Where("folder_id = ?", c.Param("id")).Order("created_at ASC").Find(&images).Error
	if err != nil {
		common.Fail(c, g.log, apierr.Internal(err))
		return
	}
	common.OK(c, images)
}

// uploadImages stores every "files" part under the folder's blob prefix. The
// first image of a folder without a thumbnail becomes its thumbnail.
func (g *GalleryModule) uploadImages(c *gin.Context) {
	ctx := c.Request.Context()
	folder, err := g.findFolder(c, c.Param("id"))
	if err != nil {
		common.Fail(c, g.log, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		common.Fail(c, g.log, apierr.Validation("Multipart form expected"))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		common.Fail(c, g.log, apierr.Validation("files is required"))
		return
	}
	for _, f := range files {
		if f.Size > maxImageSize {
			common.Fail(c, g.log, apierr.Validation("File too large: "+f.Filename))
			return
		}
		ct, err := storage.DetectType(f)
		if err != nil {
			common.Fail(c, g.log, apierr.Validation("Unreadable file: "+f.Filename))
			return
		}
		if !storage.IsImage(ct) {
			common.Fail(c, g.log, apierr.Validation("Only image files are allowed: "+f.Filename))
			return
		}
	}

	caption := c.PostForm("caption")
	images := make([]models.GalleryImage, 0, len(files))
	for _, f := range files {
		up, err := storage.PutFile(ctx, g.blobs, cascade.GalleryPrefix(folder.ID), f)
		if err != nil {
			g.rollback(c, images)
			common.Fail(c, g.log, apierr.Internal(err))
			return
		}
		images = append(images, models.GalleryImage{
			FolderID:     folder.ID,
			URL:          up.URL,
			Caption:      caption,
			OriginalName: up.OriginalName,
			StoredName:   up.Key,
			Size:         up.Size,
			MimeType:     up.MimeType,
		})
	}

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&images).Error; err != nil {
			return err
		}
		if folder.ThumbnailURL == "" {
			return tx.Model(folder).Update("thumbnail_url", images[0].URL).Error
		}
		return nil
	})
	if err != nil {
		g.rollback(c, images)
		common.Fail(c, g.log, apierr.Internal(err))
		return
	}
	common.Created(c, "Images uploaded", images)
}

func (g *GalleryModule) rollback(c *gin.Context, images []models.GalleryImage) {
	for _, img := range images {
		storage.DeleteQuietly(c.Request.Context(), g.blobs, img.StoredName, g.log)
	}
}

func (g *GalleryModule) deleteImage(c *gin.Context) {
	if err := g.engine.DeleteGalleryImage(c.Request.Context(), c.Param("id")); err != nil {
		common.Fail(c, g.log, err)
		return
	}
	common.Message(c, "Image deleted")
}

func (g *GalleryModule) findFolder(c *gin.Context, id string) (*models.GalleryFolder, error) {
	var folder models.GalleryFolder
	if err := g.db.WithContext(c.Request.Context()).First(&folder, "id = ?", id).Error; err != nil {
		return nil, common.NotFoundOr(err, "Gallery folder not found")
	}
	return &folder, nil
}
