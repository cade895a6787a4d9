package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/events"
	"github.com/spec-kit/ticketbot/internal/repository"
	"github.com/spec-kit/ticketbot/internal/view"
)

// NotificationService turns committed ticket events into direct messages and
// posts operational alerts to the admin channel.
type NotificationService struct {
	dispatcher   events.Dispatcher
	store        repository.Store
	chat         chat.Client
	renderer     *view.Renderer
	logger       *zap.Logger
	adminChannel string
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher   events.Dispatcher
	Store        repository.Store
	Chat         chat.Client
	Renderer     *view.Renderer
	Logger       *zap.Logger
	AdminChannel string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:   deps.Dispatcher,
		store:        deps.Store,
		chat:         deps.Chat,
		renderer:     deps.Renderer,
		logger:       logger,
		adminChannel: deps.AdminChannel,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommented, n.handleTicketCommented)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.String("actor", event.Actor), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketCommented(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCommented", zap.Int64("ticket_id", event.TicketID), zap.String("actor", event.Actor))
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.Assignee == event.Actor || payload.Assignee == "" || payload.Assignee == domain.Unassigned {
		return nil
	}
	ticket, err := n.store.GetTicket(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %d: %w", event.TicketID, err)
	}
	return n.chat.DirectMessage(ctx, payload.Assignee, n.renderer.AssignmentNotice(*ticket, event.Actor, payload.Comment))
}

// handleTicketStatusChanged tells the submitter when their ticket is finished
// or reopened.
func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.NewStatus == domain.TicketStatusInProgress {
		return nil
	}
	ticket, err := n.store.GetTicket(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %d: %w", event.TicketID, err)
	}
	if ticket.CreatedBy == event.Actor {
		return nil
	}
	text := fmt.Sprintf("Your ticket %s is now %s (by <@%s>).", view.TicketRef(ticket.ID), view.StatusLabel(payload.NewStatus), event.Actor)
	return n.chat.DirectMessage(ctx, ticket.CreatedBy, chat.Message{Text: text})
}

// Alert posts an operational failure to the admin channel. It never fails the
// caller.
func (n *NotificationService) Alert(ctx context.Context, kind string, err error) {
	if n == nil || strings.TrimSpace(n.adminChannel) == "" || err == nil {
		return
	}
	msg := chat.Message{Text: fmt.Sprintf("⚠️ Error in %s: %v", kind, err)}
	if _, postErr := n.chat.PostMessage(ctx, n.adminChannel, msg); postErr != nil {
		n.logger.Warn("admin alert failed", zap.String("kind", kind), zap.Error(postErr))
	}
}
