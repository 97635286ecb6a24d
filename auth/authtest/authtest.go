// Package authtest builds a guard and signed tokens for handler tests.
package authtest

import (
	"testing"
	"time"

	"edumedia/auth"
	"edumedia/logger"
	"edumedia/models"
)

const (
	AdminEmail = "admin@edumedia.test"
	UserID     = "user-1"
)

type Kit struct {
	Guard      *auth.Guard
	Tokens     *auth.TokenIssuer
	Admin      auth.AdminIdentity
	AdminToken string
	UserToken  string
}

func New(t testing.TB) *Kit {
	t.Helper()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	admin := auth.AdminIdentity{ID: "static-admin", Email: AdminEmail, Password: "admin-secret"}

	adminToken, _, err := tokens.Sign(admin.ID, models.RoleAdmin, admin.Email, "")
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}
	userToken, _, err := tokens.Sign(UserID, models.RoleUser, "user@example.com", "")
	if err != nil {
		t.Fatalf("sign user token: %v", err)
	}
	return &Kit{
		Guard:      auth.NewGuard(tokens, admin, logger.NewNop()),
		Tokens:     tokens,
		Admin:      admin,
		AdminToken: adminToken,
		UserToken:  userToken,
	}
}
