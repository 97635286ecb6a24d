package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string
	LogMode string

	Database Database
	Storage  Storage
	Auth     Auth
	SMTP     SMTP
	SMS      SMS

	RedisAddr     string
	CORSOrigins   []string
	SessionSecret string
	CacheDir      string
	SettingsFile  string
	FrontendDir   string
	SiteURL       string
}

type Database struct {
	Driver string // sqlite | postgres
	Path   string
	URL    string
}

type Storage struct {
	Mode          string // local | gcs
	UploadDir     string
	PublicBaseURL string
	GCSBucket     string
}

type Auth struct {
	JWTSecret     string
	TokenTTL      time.Duration
	OTPSecret     string
	AdminID       string
	AdminEmail    string
	AdminPassword string
}

type SMTP struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type SMS struct {
	GatewayURL string
	APIKey     string
	Sender     string
}

// Load reads .env when present, then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	jwtSecret := Get("JWT_SECRET", "")
	return Config{
		Port:    Get("PORT", "8080"),
		GinMode: Get("GIN_MODE", ""),
		LogMode: Get("LOG_MODE", "dev"),
		Database: Database{
			Driver: strings.ToLower(Get("DB_DRIVER", "sqlite")),
			Path:   Get("SQLITE_DB", "edumedia.db"),
			URL:    Get("DATABASE_URL", ""),
		},
		Storage: Storage{
			Mode:          strings.ToLower(Get("STORAGE_MODE", "local")),
			UploadDir:     Get("UPLOAD_DIR", "./uploads"),
			PublicBaseURL: Get("PUBLIC_BASE_URL", "/uploads"),
			GCSBucket:     Get("GCS_BUCKET", ""),
		},
		Auth: Auth{
			JWTSecret:     jwtSecret,
			TokenTTL:      Duration("JWT_EXPIRES_IN", 7*24*time.Hour),
			OTPSecret:     Get("OTP_SECRET", jwtSecret),
			AdminID:       Get("ADMIN_ID", "static-admin"),
			AdminEmail:    strings.ToLower(Get("ADMIN_EMAIL", "")),
			AdminPassword: Get("ADMIN_PASSWORD", ""),
		},
		SMTP: SMTP{
			Host:     Get("SMTP_HOST", ""),
			Port:     Get("SMTP_PORT", "587"),
			User:     Get("SMTP_USER", ""),
			Password: Get("SMTP_PASSWORD", ""),
			From:     Get("SMTP_FROM", ""),
		},
		SMS: SMS{
			GatewayURL: Get("SMS_GATEWAY_URL", ""),
			APIKey:     Get("SMS_API_KEY", ""),
			Sender:     Get("SMS_SENDER", ""),
		},
		RedisAddr:     Get("REDIS_ADDR", ""),
		CORSOrigins:   List("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		SessionSecret: Get("SESSION_SECRET", jwtSecret),
		CacheDir:      Get("CACHE_DIR", "./cache"),
		SettingsFile:  Get("SETTINGS_FILE", "./data/settings.json"),
		FrontendDir:   Get("FRONTEND_DIR", "./public"),
		SiteURL:       strings.TrimSuffix(Get("SITE_URL", "http://localhost:8080"), "/"),
	}
}

func Get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Duration accepts Go durations ("24h") and the "7d" day shorthand.
func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if strings.HasSuffix(v, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil || days <= 0 {
			return def
		}
		return time.Duration(days) * 24 * time.Hour
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func List(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
