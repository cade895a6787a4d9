package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/ticketbot/internal/viewstate"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// Origin identifies the surface a follow-up modal was opened from so the
// surface can be re-rendered once the modal is submitted. Exactly one of
// MessageTS or ViewID is set.
type Origin struct {
	Action    Action           `json:"action"`
	TicketID  int64            `json:"ticket_id"`
	Actor     string           `json:"actor"`
	ChannelID string           `json:"channel_id,omitempty"`
	MessageTS string           `json:"message_ts,omitempty"`
	ViewID    string           `json:"view_id,omitempty"`
	List      *viewstate.State `json:"list,omitempty"`
}

// FromCard reports whether the origin is a ticket card message.
func (o Origin) FromCard() bool {
	return o.MessageTS != ""
}

// MetadataSigner signs modal private_metadata so a submission cannot retarget
// another ticket or surface.
type MetadataSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMetadataSigner builds a signer. ttlMinutes <= 0 falls back to 30.
func NewMetadataSigner(secret string, ttlMinutes int) *MetadataSigner {
	if ttlMinutes <= 0 {
		ttlMinutes = 30
	}
	return &MetadataSigner{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

type originClaims struct {
	Origin Origin `json:"origin"`
	jwt.RegisteredClaims
}

// Sign encodes origin as a compact HS256 token.
func (s *MetadataSigner) Sign(origin Origin) (string, error) {
	issuedAt := s.now()
	claims := &originClaims{
		Origin: origin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   origin.Actor,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the origin.
func (s *MetadataSigner) Verify(raw string) (Origin, error) {
	parsed, err := jwt.ParseWithClaims(raw, &originClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Origin{}, apperrors.NewValidationError("this form has expired, please click the button again", nil)
		}
		return Origin{}, apperrors.NewValidationError("this form could not be verified, please click the button again", nil)
	}
	claims, ok := parsed.Claims.(*originClaims)
	if !ok || !parsed.Valid {
		return Origin{}, apperrors.NewValidationError("this form could not be verified, please click the button again", nil)
	}
	return claims.Origin, nil
}
