package auth

import (
	"reflect"
	"testing"
	"time"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/viewstate"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

func TestMetadataRoundTrip(t *testing.T) {
	signer := NewMetadataSigner("secret", 10)
	closed := domain.TicketStatusClosed
	origin := Origin{
		Action:   ActionClaim,
		TicketID: 42,
		Actor:    "U1",
		ViewID:   "V123",
		List:     &viewstate.State{Scope: viewstate.ScopeAll, Status: &closed, Page: 2},
	}
	raw, err := signer.Sign(origin)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := signer.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !reflect.DeepEqual(got, origin) {
		t.Fatalf("got %+v want %+v", got, origin)
	}
	if got.FromCard() {
		t.Fatal("browser origin reported as card")
	}
}

func TestMetadataRejectsTamperingAndExpiry(t *testing.T) {
	signer := NewMetadataSigner("secret", 1)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }

	raw, err := signer.Sign(Origin{Action: ActionReassign, TicketID: 7, ChannelID: "C1", MessageTS: "1.2"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewMetadataSigner("other", 1)
	other.now = signer.now
	if _, err := other.Verify(raw); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error for foreign key, got %v", err)
	}
	if _, err := signer.Verify(raw + "x"); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error for tampered token, got %v", err)
	}

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := signer.Verify(raw); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error for expired token, got %v", err)
	}
}
