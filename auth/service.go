// Package auth signs users in by password, escalates unverified channels to
// a one-time code over email or SMS, and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
)

const (
	OTPTTL         = 5 * time.Minute
	OTPMaxAttempts = 5
)

// OTPSender delivers a plaintext code to an address on one channel.
type OTPSender interface {
	SendOTP(ctx context.Context, to, code string) error
}

type Service struct {
	db         *gorm.DB
	log        *logger.Logger
	tokens     *TokenIssuer
	admin      AdminIdentity
	otpSecret  []byte
	senders    map[models.Channel]OTPSender
	validate   *validator.Validate
	now        func() time.Time
	bcryptCost int
}

func NewService(db *gorm.DB, log *logger.Logger, tokens *TokenIssuer, admin AdminIdentity, otpSecret string, emailSender, smsSender OTPSender) *Service {
	return &Service{
		db:        db,
		log:       log.With("service", "AuthService"),
		tokens:    tokens,
		admin:     admin,
		otpSecret: []byte(otpSecret),
		senders: map[models.Channel]OTPSender{
			models.ChannelEmail: emailSender,
			models.ChannelSMS:   smsSender,
		},
		validate:   common.NewValidator(),
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
}

type SignupInput struct {
	FirstName string  `json:"firstName" validate:"required"`
	LastName  string  `json:"lastName" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone" validate:"omitempty,e164"`
	Password  string  `json:"password" validate:"required,min=8"`
}

type OTPInput struct {
	Channel    models.Channel `json:"channel"`
	Identifier string         `json:"identifier"`
	Password   string         `json:"password"`
}

type VerifyInput struct {
	OTPInput
	Code string `json:"otp"`
}

// UserView is the identity returned alongside a token.
type UserView struct {
	ID        string      `json:"id"`
	Role      models.Role `json:"role"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
}

type LoginResult struct {
	OtpRequired      bool
	ExpiresInSeconds int
	Message          string
	Token            string
	ExpiresAt        time.Time
	User             *UserView
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Phone != nil {
		p := strings.TrimSpace(*in.Phone)
		if p == "" {
			in.Phone = nil
		} else {
			in.Phone = &p
		}
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, common.ValidationError(err)
	}
	if s.admin.Reserved(in.Email) {
		return nil, apierr.Conflict("Email is reserved")
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&models.User{}).Where("email = ?", in.Email)
	if in.Phone != nil {
		q = q.Or("phone = ?", *in.Phone)
	}
	var existing int64
	if err := q.Count(&existing).Error; err != nil {
		return nil, apierr.Internal(err)
	}
	if existing > 0 {
		return nil, apierr.Conflict("User with this email or phone already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("hash password: %w", err))
	}
	email := in.Email
	user := &models.User{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           &email,
		Phone:           in.Phone,
		PasswordHash:    string(hash),
		Role:            models.RoleUser,
		IsEmailVerified: boolPtr(false),
		IsPhoneVerified: boolPtr(false),
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("User with this email or phone already exists")
		}
		return nil, apierr.Internal(err)
	}
	s.log.Info("user signed up", "user_id", user.ID)
	return user, nil
}

func (s *Service) LoginPassword(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apierr.Validation("Email and password are required")
	}
	if s.admin.Reserved(email) {
		return nil, apierr.Forbidden("Use the admin login")
	}

	user, err := s.findUser(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(user, password); err != nil {
		return nil, err
	}

	// Records from before verification existed carry neither flag.
	if user.IsEmailVerified == nil && user.IsPhoneVerified == nil {
		user.IsEmailVerified = boolPtr(true)
		if err := s.db.WithContext(ctx).Model(user).Update("is_email_verified", true).Error; err != nil {
			return nil, apierr.Internal(err)
		}
	}

	if !isTrue(user.IsEmailVerified) && !isTrue(user.IsPhoneVerified) {
		return &LoginResult{OtpRequired: true, Message: "Verify your email or phone to continue"}, nil
	}
	return s.completeLogin(ctx, user)
}

func (s *Service) RequestOTP(ctx context.Context, in OTPInput) (*LoginResult, error) {
	identifier, user, err := s.authenticateChannel(ctx, in)
	if err != nil {
		return nil, err
	}

	if channelVerified(user, in.Channel) {
		return s.completeLogin(ctx, user)
	}

	db := s.db.WithContext(ctx)
	err = db.Model(&models.OtpSession{}).
		Where("user_id = ? AND channel = ? AND identifier = ? AND used = ?", user.ID, in.Channel, identifier, false).
		Update("used", true).Error
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("invalidate otp sessions: %w", err))
	}

	code, err := generateCode()
	if err != nil {
		return nil, apierr.Internal(err)
	}
	session := &models.OtpSession{
		Channel:     in.Channel,
		Identifier:  identifier,
		UserID:      user.ID,
		OtpHash:     hashCode(s.otpSecret, identifier, code),
		ExpiresAt:   s.now().Add(OTPTTL),
		MaxAttempts: OTPMaxAttempts,
	}
	if err := db.Create(session).Error; err != nil {
		return nil, apierr.Internal(fmt.Errorf("create otp session: %w", err))
	}

	if err := s.deliver(ctx, in.Channel, identifier, code); err != nil {
		if uerr := db.Model(session).Update("used", true).Error; uerr != nil {
			s.log.Warn("failed to retire undelivered otp session", "session_id", session.ID, "error", uerr)
		}
		return nil, apierr.InternalVisible("Failed to send OTP", err)
	}

	s.log.Info("otp sent", "user_id", user.ID, "channel", in.Channel)
	return &LoginResult{
		OtpRequired:      true,
		Message:          "OTP sent",
		ExpiresInSeconds: int(OTPTTL / time.Second),
	}, nil
}

func (s *Service) VerifyOTP(ctx context.Context, in VerifyInput) (*LoginResult, error) {
	code := strings.TrimSpace(in.Code)
	if !validCode(code) {
		return nil, apierr.Validation("OTP must be 6 digits")
	}
	identifier, user, err := s.authenticateChannel(ctx, in.OTPInput)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var session models.OtpSession
	err = db.Where("user_id = ? AND channel = ? AND identifier = ? AND used = ?", user.ID, in.Channel, identifier, false).
		Order("created_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Validation("No OTP found, request again")
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}

	if s.now().After(session.ExpiresAt) {
		s.retire(ctx, &session)
		return nil, apierr.Validation("OTP expired, request again")
	}
	if session.Attempts >= session.MaxAttempts {
		s.retire(ctx, &session)
		return nil, apierr.RateLimited("Too many attempts, request a new OTP")
	}

	if !codeMatches(s.otpSecret, identifier, code, session.OtpHash) {
		if err := db.Model(&session).Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return nil, apierr.Internal(err)
		}
		return nil, apierr.Unauthorized("Invalid OTP")
	}

	flag := "is_email_verified"
	if in.Channel == models.ChannelSMS {
		flag = "is_phone_verified"
	}
	now := s.now()
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OtpSession{}).Where("id = ? AND used = ?", session.ID, false).Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierr.Validation("No OTP found, request again")
		}
		return tx.Model(user).Updates(map[string]interface{}{flag: true, "last_login_at": now}).Error
	})
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, apierr.Internal(err)
	}
	if in.Channel == models.ChannelSMS {
		user.IsPhoneVerified = boolPtr(true)
	} else {
		user.IsEmailVerified = boolPtr(true)
	}
	user.LastLoginAt = &now

	s.log.Info("otp verified", "user_id", user.ID, "channel", in.Channel)
	return s.issue(user)
}

// AdminLogin checks the fixed admin credentials and never touches the user table.
func (s *Service) AdminLogin(email, password string) (*LoginResult, error) {
	if !s.admin.Matches(email, password) {
		return nil, apierr.Unauthorized("Invalid admin credentials")
	}
	token, exp, err := s.tokens.Sign(s.admin.ID, models.RoleAdmin, s.admin.Email, "")
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      &UserView{ID: s.admin.ID, Role: models.RoleAdmin, Email: s.admin.Email},
	}, nil
}

// authenticateChannel normalizes the identifier, loads its owner and checks the password.
func (s *Service) authenticateChannel(ctx context.Context, in OTPInput) (string, *models.User, error) {
	identifier, err := s.normalizeIdentifier(in.Channel, in.Identifier)
	if err != nil {
		return "", nil, err
	}
	if in.Password == "" {
		return "", nil, apierr.Validation("Password is required")
	}
	if s.admin.Reserved(identifier) {
		return "", nil, apierr.Forbidden("Use the admin login")
	}

	field := "email"
	if in.Channel == models.ChannelSMS {
		field = "phone"
	}
	user, err := s.findUser(ctx, field, identifier)
	if err != nil {
		return "", nil, err
	}
	if err := checkPassword(user, in.Password); err != nil {
		return "", nil, err
	}
	return identifier, user, nil
}

func (s *Service) findUser(ctx context.Context, field, value string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(field+" = ?", value).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("User not found")
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return &user, nil
}

func (s *Service) deliver(ctx context.Context, channel models.Channel, to, code string) error {
	sender := s.senders[channel]
	if sender == nil {
		return fmt.Errorf("no %s sender", channel)
	}
	return sender.SendOTP(ctx, to, code)
}

func (s *Service) retire(ctx context.Context, session *models.OtpSession) {
	if err := s.db.WithContext(ctx).Model(session).Update("used", true).Error; err != nil {
		s.log.Warn("failed to retire otp session", "session_id", session.ID, "error", err)
	}
}

func (s *Service) completeLogin(ctx context.Context, user *models.User) (*LoginResult, error) {
	now := s.now()
	if err := s.db.WithContext(ctx).Model(user).Update("last_login_at", now).Error; err != nil {
		return nil, apierr.Internal(err)
	}
	user.LastLoginAt = &now
	return s.issue(user)
}

func (s *Service) issue(user *models.User) (*LoginResult, error) {
	view := viewOf(user)
	token, exp, err := s.tokens.Sign(user.ID, user.Role, view.Email, view.Phone)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: view}, nil
}

func checkPassword(user *models.User, password string) error {
	if user.PasswordHash == "" {
		return apierr.InternalVisible("Password hash missing for user", nil)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return apierr.Unauthorized("Invalid credentials")
	}
	return nil
}

func channelVerified(user *models.User, channel models.Channel) bool {
	if channel == models.ChannelSMS {
		return isTrue(user.IsPhoneVerified)
	}
	return isTrue(user.IsEmailVerified)
}

func viewOf(user *models.User) *UserView {
	v := &UserView{ID: user.ID, Role: user.Role, FirstName: user.FirstName, LastName: user.LastName}
	if user.Email != nil {
		v.Email = *user.Email
	}
	if user.Phone != nil {
		v.Phone = *user.Phone
	}
	return v
}

func boolPtr(b bool) *bool { return &b }

func isTrue(b *bool) bool { return b != nil && *b }
