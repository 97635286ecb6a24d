package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/config"
)

func TestSendOTPNotConfigured(t *testing.T) {
	svc := NewEmailService(config.SMTP{})
	assert.False(t, svc.Configured())
	assert.ErrorIs(t, svc.SendOTP(context.Background(), "a@b.com", "123456"), ErrNotConfigured)
}

func TestSendOTP(t *testing.T) {
	svc := NewEmailService(config.SMTP{Host: "smtp.local", From: "no-reply@local"})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	require.NoError(t, svc.SendOTP(context.Background(), "user@example.com", "482913"))
	assert.Equal(t, "smtp.local:587", gotAddr)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "482913")
	assert.Contains(t, gotMsg, "To: user@example.com")
}

func TestSendOTPWrapsTransportError(t *testing.T) {
	svc := NewEmailService(config.SMTP{Host: "smtp.local", Port: "25", From: "no-reply@local"})
	boom := errors.New("connection refused")
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := svc.SendOTP(context.Background(), "user@example.com", "000000")
	assert.ErrorIs(t, err, boom)
}
