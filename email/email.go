package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"edumedia/config"
)

// ErrNotConfigured is returned when SMTP host or sender address is missing.
var ErrNotConfigured = errors.New("email sender not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	send     sendFunc
}

func NewEmailService(cfg config.SMTP) *EmailService {
	return &EmailService{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		send:     smtp.SendMail,
	}
}

func (e *EmailService) Configured() bool {
	return e.host != "" && e.from != ""
}

// SendOTP mails a login code. The code is only ever placed in the body.
func (e *EmailService) SendOTP(ctx context.Context, to, code string) error {
	if !e.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := "Your login code"
	body := fmt.Sprintf(`
Hello,

Your one-time login code is:

    %s

It expires in 5 minutes. If you did not try to sign in, ignore this email.
`, code)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	var auth smtp.Auth
	if e.user != "" {
		auth = smtp.PlainAuth("", e.user, e.password, e.host)
	}
	port := e.port
	if port == "" {
		port = "587"
	}
	addr := fmt.Sprintf("%s:%s", e.host, port)

	if err := e.send(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}
