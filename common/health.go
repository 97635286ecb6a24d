package common

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edumedia/apierr"
)

// Health reports whether the backing store can serve requests.
type Health interface {
	Ready(ctx context.Context) error
}

type DBHealth struct {
	db *gorm.DB
}

func NewDBHealth(db *gorm.DB) *DBHealth {
	return &DBHealth{db: db}
}

func (h *DBHealth) Ready(ctx context.Context) error {
	if h == nil || h.db == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

var errStoreDown = apierr.Unavailable("Database not available")

// RequireStore fails every request fast with 503 while the store is down.
func RequireStore(h Health) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Ready(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(errStoreDown.Status(), Response{Success: false, Error: errStoreDown.PublicMessage()})
			return
		}
		c.Next()
	}
}

// HealthHandler serves GET /api/health.
func HealthHandler(h Health) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Ready(c.Request.Context()); err != nil {
			c.JSON(errStoreDown.Status(), Response{
				Success: false,
				Data:    gin.H{"database": "down"},
				Error:   errStoreDown.PublicMessage(),
			})
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"database": "up"}})
	}
}
