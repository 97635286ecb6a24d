package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"edumedia/apierr"
	"edumedia/models"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// hashCode binds a code to its identifier so a stored hash is useless for
// any other recipient.
func hashCode(secret []byte, identifier, code string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(identifier + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

func codeMatches(secret []byte, identifier, code, stored string) bool {
	want, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(hashCode(secret, identifier, code))
	return hmac.Equal(got, want)
}

func validCode(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeIdentifier lowercases emails and trims phones, then checks the
// format the channel expects.
func (s *Service) normalizeIdentifier(channel models.Channel, raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch channel {
	case models.ChannelEmail:
		id = strings.ToLower(id)
		if s.validate.Var(id, "required,email") != nil {
			return "", apierr.Validation("Invalid email")
		}
	case models.ChannelSMS:
		if s.validate.Var(id, "required,e164") != nil {
			return "", apierr.Validation("Phone must be in E.164 format")
		}
	default:
		return "", apierr.Validation("Channel must be email or sms")
	}
	return id, nil
}
