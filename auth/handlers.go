package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/ratelimit"
)

type AuthModule struct {
	service *Service
	guard   *Guard
	limiter ratelimit.Store
	log     *logger.Logger
}

func NewAuthModule(service *Service, guard *Guard, limiter ratelimit.Store, log *logger.Logger) *AuthModule {
	return &AuthModule{
		service: service,
		guard:   guard,
		limiter: limiter,
		log:     log.With("module", "AuthModule"),
	}
}

func (m *AuthModule) RegisterRoutes(api *gin.RouterGroup) {
	a := api.Group("/auth")
	{
		a.POST("/signup", m.signup)
		a.POST("/login/password", m.loginPassword)
		a.POST("/login/request-otp", ratelimit.Limit(m.limiter, "request-otp", 5, time.Minute, m.log), m.requestOTP)
		a.POST("/login/verify-otp", ratelimit.Limit(m.limiter, "verify-otp", 10, time.Minute, m.log), m.verifyOTP)
		a.GET("/me", m.guard.RequireAuth(), m.me)
		a.POST("/logout", m.logout)
	}
	api.POST("/admin/login", m.adminLogin)
}

func (m *AuthModule) signup(c *gin.Context) {
	var in SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, m.log, apierr.Validation("Invalid request body"))
		return
	}
	user, err := m.service.Signup(c.Request.Context(), in)
	if err != nil {
		common.Fail(c, m.log, err)
		return
	}
	common.Created(c, "Signup successful", viewOf(user))
}

type passwordLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m *AuthModule) loginPassword(c *gin.Context) {
	var in passwordLogin
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, m.log, apierr.Validation("Invalid request body"))
		return
	}
	res, err := m.service.LoginPassword(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		common.Fail(c, m.log, err)
		return
	}
	m.respond(c, res)
}

func (m *AuthModule) requestOTP(c *gin.Context) {
	var in OTPInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, m.log, apierr.Validation("Invalid request body"))
		return
	}
	res, err := m.service.RequestOTP(c.Request.Context(), in)
	if err != nil {
		common.Fail(c, m.log, err)
		return
	}
	m.respond(c, res)
}

func (m *AuthModule) verifyOTP(c *gin.Context) {
	var in VerifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, m.log, apierr.Validation("Invalid request body"))
		return
	}
	res, err := m.service.VerifyOTP(c.Request.Context(), in)
	if err != nil {
		common.Fail(c, m.log, err)
		return
	}
	m.respond(c, res)
}

func (m *AuthModule) adminLogin(c *gin.Context) {
	var in passwordLogin
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, m.log, apierr.Validation("Invalid request body"))
		return
	}
	res, err := m.service.AdminLogin(in.Email, in.Password)
	if err != nil {
		m.log.Warn("admin login rejected", "ip", c.ClientIP())
		common.Fail(c, m.log, err)
		return
	}
	m.respond(c, res)
}

func (m *AuthModule) me(c *gin.Context) {
	claims, _ := ClaimsFrom(c)
	common.OK(c, gin.H{
		"id":    claims.UserID(),
		"role":  claims.Role,
		"email": claims.Email,
		"phone": claims.Phone,
		"exp":   claims.ExpiresAt.Time,
	})
}

func (m *AuthModule) logout(c *gin.Context) {
	if s := session(c); s != nil {
		s.Clear()
		if err := s.Save(); err != nil {
			m.log.Warn("failed to clear session", "error", err)
		}
	}
	common.Message(c, "Logged out")
}

// respond writes either the OTP challenge or the issued token, mirroring the
// token into the session cookie when sessions are enabled.
func (m *AuthModule) respond(c *gin.Context, res *LoginResult) {
	if res.OtpRequired {
		fields := gin.H{"otpRequired": true, "message": res.Message}
		if res.ExpiresInSeconds > 0 {
			fields["expiresInSeconds"] = res.ExpiresInSeconds
		}
		common.Flat(c, http.StatusOK, fields)
		return
	}

	if s := session(c); s != nil {
		s.Set(sessionKey, res.Token)
		if err := s.Save(); err != nil {
			m.log.Warn("failed to save session", "error", err)
		}
	}
	common.Flat(c, http.StatusOK, gin.H{
		"otpRequired": false,
		"token":       res.Token,
		"expiresAt":   res.ExpiresAt,
		"user":        res.User,
	})
}
