package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/slack-go/slack"

	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// SlackVerifier rejects requests not signed with the app's signing secret.
type SlackVerifier struct {
	secret string
}

// NewSlackVerifier constructs middleware.
func NewSlackVerifier(signingSecret string) *SlackVerifier {
	return &SlackVerifier{secret: signingSecret}
}

// Handle enforces the X-Slack-Signature check on webhook routes.
func (m *SlackVerifier) Handle(c *fiber.Ctx) error {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	verifier, err := slack.NewSecretsVerifier(header, m.secret)
	if err != nil {
		return apperrors.NewUnauthorized("missing or stale request signature")
	}
	if _, err := verifier.Write(c.Body()); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := verifier.Ensure(); err != nil {
		return apperrors.NewUnauthorized("invalid request signature")
	}
	return c.Next()
}
