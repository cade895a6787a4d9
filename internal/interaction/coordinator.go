// Package interaction turns decoded Slack interactions into state machine
// calls and re-renders the surface the interaction came from.
package interaction

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/observability"
	"github.com/spec-kit/ticketbot/internal/query"
	"github.com/spec-kit/ticketbot/internal/repository"
	"github.com/spec-kit/ticketbot/internal/service"
	"github.com/spec-kit/ticketbot/internal/view"
	"github.com/spec-kit/ticketbot/internal/viewstate"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// Interaction kinds, used for routing and metrics.
const (
	KindSubmitForm       = "submit_form"
	KindFilterChange     = "filter_change"
	KindPageChange       = "page_change"
	KindTransitionButton = "transition_button"
	KindConfirm          = "confirm_transition"
	KindExportRequest    = "export_request"
	KindOpenForm         = "open_form"
	KindOpenBrowser      = "open_browser"
	KindSummary          = "summary"
	KindUnknown          = "unknown"
)

// Surface is where a block action happened. A card has ChannelID and
// MessageTS; a browser modal has ViewID, Hash and its current state.
type Surface struct {
	ChannelID string
	MessageTS string
	ViewID    string
	Hash      string
	Values    viewstate.Values
	Metadata  string
}

// FromCard reports whether the surface is a ticket card message.
func (s Surface) FromCard() bool {
	return s.ViewID == "" && s.MessageTS != ""
}

func (s Surface) cardRef() chat.MessageRef {
	return chat.MessageRef{ChannelID: s.ChannelID, TS: s.MessageTS}
}

// Coordinator handles every interaction kind. It holds no state between
// interactions.
type Coordinator struct {
	tickets       *service.TicketService
	exports       *service.ExportService
	notifier      *service.NotificationService
	store         repository.Store
	builder       *query.Builder
	renderer      *view.Renderer
	chat          chat.Client
	signer        *auth.MetadataSigner
	metrics       *observability.Metrics
	logger        *zap.Logger
	ticketChannel string
	pageSize      int
}

// Dependencies bundles collaborators for the coordinator.
type Dependencies struct {
	Tickets       *service.TicketService
	Exports       *service.ExportService
	Notifier      *service.NotificationService
	Store         repository.Store
	Builder       *query.Builder
	Renderer      *view.Renderer
	Chat          chat.Client
	Signer        *auth.MetadataSigner
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	TicketChannel string
	PageSize      int
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(deps Dependencies) *Coordinator {
	c := &Coordinator{
		tickets:       deps.Tickets,
		exports:       deps.Exports,
		notifier:      deps.Notifier,
		store:         deps.Store,
		builder:       deps.Builder,
		renderer:      deps.Renderer,
		chat:          deps.Chat,
		signer:        deps.Signer,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		ticketChannel: deps.TicketChannel,
		pageSize:      deps.PageSize,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.pageSize <= 0 {
		c.pageSize = 5
	}
	return c
}

func (c *Coordinator) policy() *auth.Policy {
	return c.tickets.Policy()
}

// record counts the interaction and logs failures. Upstream and internal
// failures are also posted to the admin channel.
func (c *Coordinator) record(ctx context.Context, kind, actor string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.CodeOf(err)
	}
	c.metrics.RecordInteraction(kind, outcome)
	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("kind", kind), zap.String("actor", actor), zap.String("code", outcome), zap.Error(err)}
	switch outcome {
	case apperrors.CodeUpstream, apperrors.CodeInternal:
		c.logger.Error("interaction failed", fields...)
		c.notifier.Alert(ctx, kind, err)
	default:
		c.logger.Info("interaction rejected", fields...)
	}
}

// userMessage is the short text shown to the actor for err.
func userMessage(err error) string {
	de := apperrors.ToDomainError(err)
	if de.Code == apperrors.CodeInternal {
		return "something went wrong, please try again"
	}
	return de.Message
}

// renderFailure combines the error that caused a re-render with a failure of
// the re-render itself.
func renderFailure(cause, renderErr error) error {
	if renderErr == nil {
		return cause
	}
	return errors.Join(cause, renderErr)
}
