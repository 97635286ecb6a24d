package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/config"
)

func TestSendNotConfigured(t *testing.T) {
	s := NewSender(config.SMS{})
	assert.ErrorIs(t, s.Send(context.Background(), "+15551234567", "hi"), ErrNotConfigured)
}

func TestSendOTP(t *testing.T) {
	var got message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSender(config.SMS{GatewayURL: srv.URL, APIKey: "key", Sender: "EduMedia"})
	require.NoError(t, s.SendOTP(context.Background(), "+15551234567", "123456"))

	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "+15551234567", got.To)
	assert.Equal(t, "EduMedia", got.From)
	assert.Contains(t, got.Body, "123456")
}

func TestSendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	s := NewSender(config.SMS{GatewayURL: srv.URL, APIKey: "key"})
	err := s.Send(context.Background(), "+15551234567", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "quota exceeded")
}
