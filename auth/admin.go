package auth

import (
	"crypto/subtle"
	"strings"

	"edumedia/config"
)

// AdminIdentity is the single administrator. It has no user record and never
// goes through signup or OTP.
type AdminIdentity struct {
	ID       string
	Email    string
	Password string
}

func NewAdminIdentity(cfg config.Auth) AdminIdentity {
	return AdminIdentity{
		ID:       cfg.AdminID,
		Email:    strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		Password: cfg.AdminPassword,
	}
}

func (a AdminIdentity) Configured() bool {
	return a.Email != "" && a.Password != ""
}

// Reserved reports whether identifier is the admin email.
func (a AdminIdentity) Reserved(identifier string) bool {
	return a.Email != "" && strings.ToLower(strings.TrimSpace(identifier)) == a.Email
}

func (a AdminIdentity) Matches(email, password string) bool {
	if !a.Configured() {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(a.Email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
	return emailOK && passOK
}
