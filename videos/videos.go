package videos

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/auth"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
)

type VideosModule struct {
	db    *gorm.DB
	guard *auth.Guard
	log   *logger.Logger
}

func NewVideosModule(db *gorm.DB, guard *auth.Guard, log *logger.Logger) *VideosModule {
	return &VideosModule{db: db, guard: guard, log: log.With("module", "VideosModule")}
}

func (v *VideosModule) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/videos")
	{
		group.GET("", v.list)
		group.GET("/:id", v.get)
		group.POST("", append(v.guard.Admin(), v.create)...)
		group.PUT("/:id", append(v.guard.Admin(), v.update)...)
		group.DELETE("/:id", append(v.guard.Admin(), v.remove)...)
	}
}

type videoInput struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	OriginalURL *string `json:"originalUrl"`
	Description *string `json:"description"`
}

// apply copies the given fields onto video, normalizing a new url.
func (in videoInput) apply(video *models.VideoReference) error {
	if in.Title != nil {
		video.Title = *in.Title
	}
	if in.Description != nil {
		video.Description = *in.Description
	}
	if in.URL == nil {
		in.URL = in.OriginalURL
	}
	if in.URL != nil {
		n, ok := Normalize(*in.URL)
		if !ok {
			return apierr.Validation("url must be a YouTube link, a video id or an http(s) url")
		}
		video.OriginalURL = *in.URL
		video.Provider = n.Provider
		video.VideoID = n.VideoID
		video.EmbedURL = n.EmbedURL
	}
	if video.OriginalURL == "" {
		return apierr.Validation("url is required")
	}
	return nil
}

func (v *VideosModule) list(c *gin.Context) {
	videos := []models.VideoReference{}
	if err := v.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&videos).Error; err != nil {
		common.Fail(c, v.log, apierr.Internal(err))
		return
	}
	common.OK(c, videos)
}

func (v *VideosModule) get(c *gin.Context) {
	video, err := v.find(c)
	if err != nil {
		common.Fail(c, v.log, err)
		return
	}
	common.OK(c, video)
}

func (v *VideosModule) create(c *gin.Context) {
	var in videoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, v.log, apierr.Validation("Invalid request body"))
		return
	}
	video := &models.VideoReference{}
	if err := in.apply(video); err != nil {
		common.Fail(c, v.log, err)
		return
	}
	if err := v.db.WithContext(c.Request.Context()).Create(video).Error; err != nil {
		common.Fail(c, v.log, apierr.Internal(err))
		return
	}
	common.Created(c, "Video created", video)
}

func (v *VideosModule) update(c *gin.Context) {
	video, err := v.find(c)
	if err != nil {
		common.Fail(c, v.log, err)
		return
	}
	var in videoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, v.log, apierr.Validation("Invalid request body"))
		return
	}
	if err := in.apply(video); err != nil {
		common.Fail(c, v.log, err)
		return
	}
	if err := v.db.WithContext(c.Request.Context()).Save(video).Error; err != nil {
		common.Fail(c, v.log, apierr.Internal(err))
		return
	}
	common.OK(c, video)
}

func (v *VideosModule) remove(c *gin.Context) {
	res := v.db.WithContext(c.Request.Context()).Delete(&models.VideoReference{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		common.Fail(c, v.log, apierr.Internal(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		common.Fail(c, v.log, apierr.NotFound("Video not found"))
		return
	}
	common.Message(c, "Video deleted")
}

func (v *VideosModule) find(c *gin.Context) (*models.VideoReference, error) {
	var video models.VideoReference
	if err := v.db.WithContext(c.Request.Context()).First(&video, "id = ?", c.Param("id")).Error; err != nil {
		return nil, common.NotFoundOr(err, "Video not found")
	}
	return &video, nil
}
