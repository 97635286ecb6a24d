package notifications

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/auth"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
)

type NotificationsModule struct {
	db    *gorm.DB
	guard *auth.Guard
	log   *logger.Logger
}

func NewNotificationsModule(db *gorm.DB, guard *auth.Guard, log *logger.Logger) *NotificationsModule {
	return &NotificationsModule{db: db, guard: guard, log: log.With("module", "NotificationsModule")}
}

func (n *NotificationsModule) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/notifications")
	{
		group.GET("", append(n.guard.Admin(), n.listAll)...)
		group.GET("/mine", n.guard.RequireAuth(), n.listMine)
		group.POST("", append(n.guard.Admin(), n.create)...)
		group.PATCH("/:id/read", n.guard.RequireAuth(), n.markRead)
		group.DELETE("/:id", append(n.guard.Admin(), n.remove)...)
	}
}

type notificationInput struct {
	Text         string  `json:"text"`
	TargetUserID *string `json:"targetUserId"`
}

func (n *NotificationsModule) listAll(c *gin.Context) {
	items := []models.Notification{}
	if err := n.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&items).Error; err != nil {
		common.Fail(c, n.log, apierr.Internal(err))
		return
	}
	common.OK(c, items)
}

// listMine returns broadcasts plus the ones addressed to the caller.
func (n *NotificationsModule) listMine(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		common.Fail(c, n.log, apierr.Unauthorized("Authentication required"))
		return
	}
	items := []models.Notification{}
	err := n.db.WithContext(c.Request.Context()).
		Where("target_user_id IS NULL OR target_user_id = ?", claims.UserID()).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		common.Fail(c, n.log, apierr.Internal(err))
		return
	}
	common.OK(c, items)
}

func (n *NotificationsModule) create(c *gin.Context) {
	var in notificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, n.log, apierr.Validation("Invalid request body"))
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		common.Fail(c, n.log, apierr.Validation("text is required"))
		return
	}
	if in.TargetUserID != nil && strings.TrimSpace(*in.TargetUserID) == "" {
		in.TargetUserID = nil
	}

	item := &models.Notification{Text: in.Text, TargetUserID: in.TargetUserID}
	if err := n.db.WithContext(c.Request.Context()).Create(item).Error; err != nil {
		common.Fail(c, n.log, apierr.Internal(err))
		return
	}
	common.Created(c, "Notification created", item)
}

func (n *NotificationsModule) markRead(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		common.Fail(c, n.log, apierr.Unauthorized("Authentication required"))
		return
	}
	var item models.Notification
	if err := n.db.WithContext(c.Request.Context()).First(&item, "id = ?", c.Param("id")).Error; err != nil {
		common.Fail(c, n.log, common.NotFoundOr(err, "Notification not found"))
		return
	}
	// Someone else's notification is reported as missing.
	if item.TargetUserID != nil && *item.TargetUserID != claims.UserID() && claims.Role != models.RoleAdmin {
		common.Fail(c, n.log, apierr.NotFound("Notification not found"))
		return
	}
	if err := n.db.WithContext(c.Request.Context()).Model(&item).Update("is_read", true).Error; err != nil {
		common.Fail(c, n.log, apierr.Internal(err))
		return
	}
	item.IsRead = true
	common.OK(c, item)
}

func (n *NotificationsModule) remove(c *gin.Context) {
	res := n.db.WithContext(c.Request.Context()).Delete(&models.Notification{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		common.Fail(c, n.log, apierr.Internal(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		common.Fail(c, n.log, apierr.NotFound("Notification not found"))
		return
	}
	common.Message(c, "Notification deleted")
}
