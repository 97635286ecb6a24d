package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	l := NewNop()

	out := l.sanitize([]interface{}{"user_id", "u1", "password", "hunter22", "otpCode", "123456", "dangling"})

	assert.Equal(t, []interface{}{"user_id", "u1", "password", "[REDACTED]", "otpCode", "[REDACTED]", "dangling"}, out)
}

func TestSanitizeDisabled(t *testing.T) {
	l := NewNop()
	l.redact = false

	in := []interface{}{"token", "abc"}
	assert.Equal(t, in, l.sanitize(in))
}
