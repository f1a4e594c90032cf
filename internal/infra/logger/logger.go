package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns the process-wide zap.Logger. The first call decides the
// configuration; later calls return the same instance.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		lg, err = cfg.Build()
	})

	return lg, err
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// WithContext attaches request scoped fields to the logger.
func WithContext(ctx context.Context) *zap.Logger {
	if lg == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}

	if ctx == nil {
		return lg
	}

	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return lg.With(zap.String("request_id", id))
	}

	return lg
}

// PII masking. Applicant and staff addresses move through auth logs on every
// login attempt; nothing below may emit them in plaintext.

// MaskEmail keeps at most the first three characters of the local part and
// the full domain. Example: john.doe@example.com -> joh***@example.com
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}

	visible := at
	if visible > 3 {
		visible = 3
	}

	return email[:visible] + "***" + email[at:]
}

// MaskIP keeps the first two IPv4 octets or the first four IPv6 groups.
// Example: 192.168.1.100 -> 192.168.*.*
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".*.*"
		}
	}

	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}

	return "***"
}

// MaskString hides the middle of an arbitrary sensitive value, keeping the
// first and last two characters. Values of four characters or fewer mask
// entirely. Example: "secret123" -> "se***23"
func MaskString(s string) string {
	if s == "" {
		return ""
	}

	if len(s) <= 4 {
		return "***"
	}

	return s[:2] + "***" + s[len(s)-2:]
}
