package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"edumedia/analytics"
	"edumedia/auth"
	"edumedia/cache"
	"edumedia/cascade"
	"edumedia/common"
	"edumedia/config"
	"edumedia/content"
	"edumedia/database"
	"edumedia/email"
	"edumedia/gallery"
	"edumedia/logger"
	"edumedia/media"
	"edumedia/notifications"
	"edumedia/ratelimit"
	"edumedia/settings"
	"edumedia/site"
	"edumedia/sms"
	"edumedia/storage"
	"edumedia/videos"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	db := common.ConnectDb(cfg.Database, log)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}
	if err := database.RunMigrations(db, log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blobs, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to open blob storage", "mode", cfg.Storage.Mode, "error", err)
	}

	engine := cascade.New(db, blobs, log)
	treeCache := cache.NewStore(cfg.CacheDir)
	validate := common.NewValidator()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	admin := auth.NewAdminIdentity(cfg.Auth)
	if !admin.Configured() {
		log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, admin login disabled")
	}
	mailer := email.NewEmailService(cfg.SMTP)
	if !mailer.Configured() {
		log.Warn("SMTP not configured, email OTP delivery will fail")
	}
	texter := sms.NewSender(cfg.SMS)
	if !texter.Configured() {
		log.Warn("SMS gateway not configured, sms OTP delivery will fail")
	}
	authService := auth.NewService(db, log, tokens, admin, cfg.Auth.OTPSecret, mailer, texter)
	guard := auth.NewGuard(tokens, admin, log)
	limiter := ratelimit.Open(cfg.RedisAddr, log)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := gin.New()
	router.Use(common.RequestLogger(log), gin.Recovery())
	router.Use(common.CORS(cfg.CORSOrigins))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   gin.Mode() == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("edumedia-session", store))

	health := common.NewDBHealth(db)
	router.GET("/api/health", common.HealthHandler(health))
	api := router.Group("/api", common.RequireStore(health))

	auth.NewAuthModule(authService, guard, limiter, log).RegisterRoutes(api)
	content.NewContentModule(db, engine, blobs, treeCache, guard, validate, log).RegisterRoutes(api)
	gallery.NewGalleryModule(db, engine, blobs, guard, validate, log).RegisterRoutes(api)
	media.NewMediaModule(db, blobs, guard, log).RegisterRoutes(api)
	videos.NewVideosModule(db, guard, log).RegisterRoutes(api)
	notifications.NewNotificationsModule(db, guard, log).RegisterRoutes(api)
	analytics.NewAnalyticsModule(db, engine, guard, log).RegisterRoutes(api)
	settings.NewSettingsModule(settings.NewStore(cfg.SettingsFile), guard, log).RegisterRoutes(api)

	site.NewSiteModule(db, cfg.SiteURL, log).RegisterRoutes(router)

	if cfg.Storage.Mode == "local" || cfg.Storage.Mode == "" {
		router.Static("/uploads", cfg.Storage.UploadDir)
	}
	router.NoRoute(spaFallback(cfg.FrontendDir))

	authService.StartOtpSweeper(ctx, 10*time.Minute)
	ratelimit.StartPruner(ctx, limiter, 10*time.Minute, time.Hour)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := treeCache.ClearOld(24 * time.Hour); err != nil {
					log.Warn("cache cleanup failed", "error", err)
				}
			}
		}
	}()

	log.Info("Starting server", "port", cfg.Port, "storage", cfg.Storage.Mode, "db", cfg.Database.Driver)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server", "error", err)
	}
}

// spaFallback serves the frontend's index.html for unknown non-API GETs so
// client-side routes survive a reload.
func spaFallback(frontendDir string) gin.HandlerFunc {
	index := filepath.Join(frontendDir, "index.html")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || path == "/api" || strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, common.Response{Success: false, Error: "Route not found"})
			return
		}
		if file := filepath.Join(frontendDir, filepath.Clean("/"+path)); file != index && fileExists(file) {
			c.File(file)
			return
		}
		c.File(index)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
