package analytics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/auth"
	"edumedia/cascade"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
)

const (
	visitorCookie = "edumedia_visitor_id"
	// A visitor is counted once per article per window.
	viewWindow = 30 * time.Minute
)

// AnalyticsModule counts article views.
type AnalyticsModule struct {
	db     *gorm.DB
	engine *cascade.Engine
	guard  *auth.Guard
	log    *logger.Logger
	now    func() time.Time
}

// NewAnalyticsModule wires view cleanup into the cascade so deleted
// articles take their view rows with them.
func NewAnalyticsModule(db *gorm.DB, engine *cascade.Engine, guard *auth.Guard, log *logger.Logger) *AnalyticsModule {
	a := &AnalyticsModule{db: db, engine: engine, guard: guard, log: log.With("module", "AnalyticsModule"), now: time.Now}
	engine.OnDeleted(a.forget)
	return a
}

func (a *AnalyticsModule) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/analytics")
	{
		group.POST("/articles/:id/view", a.trackView)
		group.GET("/articles/:id", append(a.guard.Admin(), a.articleStats)...)
		group.GET("/top", append(a.guard.Admin(), a.topArticles)...)
	}
}

// trackView records a visit unless the same visitor saw the article recently.
func (a *AnalyticsModule) trackView(c *gin.Context) {
	ctx := c.Request.Context()
	articleID := c.Param("id")
	exists, err := a.engine.Exists(ctx, models.ParentRef{Type: models.ParentArticle, ID: articleID})
	if err != nil {
		common.Fail(c, a.log, err)
		return
	}
	if !exists {
		common.Fail(c, a.log, apierr.NotFound("Article not found"))
		return
	}

	visitorID := a.visitorID(c)
	var recent int64
	err = a.db.WithContext(ctx).Model(&models.ArticleView{}).
		Where("visitor_id = ? AND article_id = ? AND created_at > ?", visitorID, articleID, a.now().Add(-viewWindow)).
		Count(&recent).Error
	if err != nil {
		common.Fail(c, a.log, apierr.Internal(err))
		return
	}
	if recent > 0 {
		common.OK(c, gin.H{"counted": false})
		return
	}

	view := models.ArticleView{
		ArticleID: articleID,
		VisitorID: visitorID,
		Language:  extractLanguage(c.GetHeader("Accept-Language")),
		Browser:   extractBrowser(c.Request.UserAgent()),
		CreatedAt: a.now(),
	}
	if err := a.db.WithContext(ctx).Create(&view).Error; err != nil {
		common.Fail(c, a.log, apierr.Internal(err))
		return
	}
	common.OK(c, gin.H{"counted": true})
}

func (a *AnalyticsModule) visitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(visitorCookie, id, 60*60*24*365*2, "/", "", false, true)
	return id
}

// DayViews is the number of views on one calendar day.
type DayViews struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ArticleViews is an article with its view count.
type ArticleViews struct {
	ArticleID string `json:"articleId"`
	Title     string `json:"title"`
	Count     int64  `json:"count"`
}

func (a *AnalyticsModule) articleStats(c *gin.Context) {
	ctx := c.Request.Context()
	articleID := c.Param("id")
	days := intQuery(c, "days", 30, 365)

	var total int64
	if err := a.db.WithContext(ctx).Model(&models.ArticleView{}).Where("article_id = ?", articleID).Count(&total).Error; err != nil {
		common.Fail(c, a.log, apierr.Internal(err))
		return
	}
	byDay, err := a.viewsByDay(ctx, articleID, days)
	if err != nil {
		common.Fail(c, a.log, apierr.Internal(err))
		return
	}
	common.OK(c, gin.H{"articleId": articleID, "total": total, "byDay": byDay})
}

// viewsByDay fills every one of the last days with a count, zero included.
func (a *AnalyticsModule) viewsByDay(ctx context.Context, articleID string, days int) ([]DayViews, error) {
	now := a.now()
	start := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	var views []models.ArticleView
	err := a.db.WithContext(ctx).
		Select("created_at").
		Where("article_id = ? AND created_at >= ?", articleID, start).
		Find(&views).Error
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, v := range views {
		counts[v.CreatedAt.UTC().Format("2006-01-02")]++
	}

	out := make([]DayViews, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -(days - 1 - i)).UTC().Format("2006-01-02")
		out[i] = DayViews{Date: date, Count: counts[date]}
	}
	return out, nil
}

func (a *AnalyticsModule) topArticles(c *gin.Context) {
	days := intQuery(c, "days", 30, 365)
	limit := intQuery(c, "limit", 10, 100)
	since := a.now().AddDate(0, 0, -days)

	results := []ArticleViews{}
	err := a.db.WithContext(c.Request.Context()).
		Table("article_views").
		Select("article_views.article_id AS article_id, articles.title AS title, COUNT(*) AS count").
		Joins("JOIN articles ON articles.id = article_views.article_id").
		Where("article_views.created_at >= ?", since).
		Group("article_views.article_id, articles.title").
		Order("count DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		common.Fail(c, a.log, apierr.Internal(err))
		return
	}
	common.OK(c, results)
}

func (a *AnalyticsModule) forget(ctx context.Context, ref models.ParentRef) {
	if ref.Type != models.ParentArticle {
		return
	}
	if err := a.db.WithContext(ctx).Where("article_id = ?", ref.ID).Delete(&models.ArticleView{}).Error; err != nil {
		a.log.Warn("failed to drop article views", "articleId", ref.ID, "error", err)
	}
}

func intQuery(c *gin.Context, key string, def, max int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// extractBrowser checks the more specific engines first.
func extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}
	ua := strings.ToLower(userAgent)
	var browser string
	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		browser = "Internet Explorer"
	default:
		browser = "Other"
	}
	return &browser
}

// extractLanguage keeps the first tag of an Accept-Language header.
func extractLanguage(header string) *string {
	if header == "" {
		return nil
	}
	lang := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	if lang == "" {
		return nil
	}
	return &lang
}
