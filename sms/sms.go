// Package sms delivers text messages through an HTTP gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"edumedia/config"
)

var ErrNotConfigured = errors.New("sms sender not configured")

type Sender struct {
	gatewayURL string
	apiKey     string
	from       string
	client     *http.Client
}

func NewSender(cfg config.SMS) *Sender {
	return &Sender{
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		from:       cfg.Sender,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Sender) Configured() bool {
	return s.gatewayURL != "" && s.apiKey != ""
}

type message struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

// Send posts one message to the gateway. Any non-2xx answer is an error.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(message{To: to, From: s.from, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// SendOTP formats and sends a login code.
func (s *Sender) SendOTP(ctx context.Context, to, code string) error {
	return s.Send(ctx, to, fmt.Sprintf("Your login code is %s. It expires in 5 minutes.", code))
}
