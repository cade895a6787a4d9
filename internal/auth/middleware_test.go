package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

func sign(secret, timestamp, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func newVerifiedApp(secret string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Post("/hook", NewSlackVerifier(secret).Handle, func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestSlackVerifier(t *testing.T) {
	app := newVerifiedApp("shh")
	body := "command=%2Fnew-ticket&user_id=U1"
	now := strconv.FormatInt(time.Now().Unix(), 10)
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	tests := []struct {
		name      string
		timestamp string
		signature string
		want      int
	}{
		{name: "valid", timestamp: now, signature: sign("shh", now, body), want: http.StatusOK},
		{name: "wrong secret", timestamp: now, signature: sign("nope", now, body), want: http.StatusUnauthorized},
		{name: "stale timestamp", timestamp: stale, signature: sign("shh", stale, body), want: http.StatusUnauthorized},
		{name: "missing headers", want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tc.timestamp != "" {
				req.Header.Set("X-Slack-Request-Timestamp", tc.timestamp)
				req.Header.Set("X-Slack-Signature", tc.signature)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status %d want %d", resp.StatusCode, tc.want)
			}
		})
	}
}
