package settings

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"edumedia/apierr"
	"edumedia/auth"
	"edumedia/common"
	"edumedia/logger"
)

type SettingsModule struct {
	store *Store
	guard *auth.Guard
	log   *logger.Logger
}

func NewSettingsModule(store *Store, guard *auth.Guard, log *logger.Logger) *SettingsModule {
	return &SettingsModule{store: store, guard: guard, log: log.With("module", "SettingsModule")}
}

func (s *SettingsModule) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/settings", s.get)
	api.PUT("/settings", append(s.guard.Admin(), s.update)...)
}

func (s *SettingsModule) get(c *gin.Context) {
	values, err := s.store.Load()
	if err != nil {
		common.Fail(c, s.log, apierr.Internal(err))
		return
	}
	common.OK(c, values)
}

func (s *SettingsModule) update(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.Fail(c, s.log, apierr.Validation("Invalid request body"))
		return
	}
	var patch map[string]interface{}
	if err := json.Unmarshal(raw, &patch); err != nil || patch == nil {
		common.Fail(c, s.log, apierr.Validation("Settings must be a JSON object"))
		return
	}
	values, err := s.store.Merge(patch)
	if err != nil {
		common.Fail(c, s.log, apierr.Internal(err))
		return
	}
	s.log.Info("settings updated", "keys", len(patch))
	common.OK(c, values)
}
