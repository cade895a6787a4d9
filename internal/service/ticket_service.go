package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/catalog"
	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/events"
	"github.com/spec-kit/ticketbot/internal/repository"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

const maxDetailsLength = 2500

// TicketDetail is a ticket together with its comment transcript, as read back
// inside the transaction that produced it.
type TicketDetail struct {
	Ticket   domain.Ticket
	Comments []domain.Comment
}

// TicketService applies lifecycle transitions under the responder policy.
type TicketService struct {
	store      repository.Store
	policy     *auth.Policy
	catalog    *catalog.Catalog
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Policy     *auth.Policy
	Catalog    *catalog.Catalog
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// SubmitInput describes a new ticket as entered in the submission form.
type SubmitInput struct {
	Campaign     string
	IssueType    string
	Priority     domain.TicketPriority
	Details      string
	ExternalLink *string
	Attachment   *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		store:      deps.Store,
		policy:     deps.Policy,
		catalog:    deps.Catalog,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.catalog == nil {
		s.catalog = catalog.MustDefault()
	}
	return s
}

// Policy exposes the responder policy for rendering.
func (s *TicketService) Policy() *auth.Policy {
	return s.policy
}

// Submit validates and persists a new Open, Unassigned ticket.
func (s *TicketService) Submit(ctx context.Context, creator string, input SubmitInput) (*TicketDetail, error) {
	if err := s.validateSubmission(&input); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		CreatedBy:    creator,
		Campaign:     input.Campaign,
		IssueType:    input.IssueType,
		Priority:     input.Priority,
		Status:       domain.TicketStatusOpen,
		AssignedTo:   domain.Unassigned,
		Details:      input.Details,
		ExternalLink: input.ExternalLink,
		Attachment:   input.Attachment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertTicket(ctx, ticket); err != nil {
		return nil, apperrors.NewUpstream("the ticket database", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    creator,
		Payload: events.TicketCreatedPayload{
			Campaign:  ticket.Campaign,
			IssueType: ticket.IssueType,
			Priority:  ticket.Priority,
		},
	})
	return &TicketDetail{Ticket: *ticket, Comments: []domain.Comment{}}, nil
}

// Get reads a ticket and its comments outside any transition.
func (s *TicketService) Get(ctx context.Context, id int64) (*TicketDetail, error) {
	ticket, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, id)
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, id)
	}
	return &TicketDetail{Ticket: *ticket, Comments: comments}, nil
}

// Claim moves an Open, Unassigned ticket to In Progress owned by actor.
func (s *TicketService) Claim(ctx context.Context, actor string, id int64, comment string) (*TicketDetail, error) {
	return s.transition(ctx, actor, id, auth.ActionClaim, func(t *domain.Ticket) error {
		if t.Status != domain.TicketStatusOpen {
			return illegal(t, "ticket is no longer open", "not open")
		}
		if t.IsAssigned() {
			return illegal(t, "ticket is already assigned to <@"+t.AssignedTo+">", "already assigned")
		}
		t.Status = domain.TicketStatusInProgress
		t.AssignedTo = actor
		return nil
	}, comment)
}

// Reassign hands an Open or In Progress ticket to assignee.
func (s *TicketService) Reassign(ctx context.Context, actor string, id int64, assignee, comment string) (*TicketDetail, error) {
	assignee = strings.TrimSpace(assignee)
	return s.transition(ctx, actor, id, auth.ActionReassign, func(t *domain.Ticket) error {
		if assignee == "" || assignee == domain.Unassigned {
			return apperrors.NewValidationError("pick someone to reassign the ticket to", map[string]any{"assignee": "required"})
		}
		if !isActive(t.Status) {
			return illegal(t, "only open or in progress tickets can be reassigned", "not active")
		}
		t.Status = domain.TicketStatusInProgress
		t.AssignedTo = assignee
		return nil
	}, comment)
}

// Resolve marks an active ticket Resolved. The assignee is kept.
func (s *TicketService) Resolve(ctx context.Context, actor string, id int64) (*TicketDetail, error) {
	return s.transition(ctx, actor, id, auth.ActionResolve, func(t *domain.Ticket) error {
		if !isActive(t.Status) {
			return illegal(t, "ticket is already "+strings.ToLower(string(t.Status)), "not active")
		}
		t.Status = domain.TicketStatusResolved
		return nil
	}, "")
}

// Close marks an active ticket Closed. The assignee is kept.
func (s *TicketService) Close(ctx context.Context, actor string, id int64) (*TicketDetail, error) {
	return s.transition(ctx, actor, id, auth.ActionClose, func(t *domain.Ticket) error {
		if !isActive(t.Status) {
			return illegal(t, "ticket is already "+strings.ToLower(string(t.Status)), "not active")
		}
		t.Status = domain.TicketStatusClosed
		return nil
	}, "")
}

// Reopen returns a Resolved or Closed ticket to Open without touching the
// assignee.
func (s *TicketService) Reopen(ctx context.Context, actor string, id int64) (*TicketDetail, error) {
	return s.transition(ctx, actor, id, auth.ActionReopen, func(t *domain.Ticket) error {
		if isActive(t.Status) {
			return illegal(t, "ticket is already "+strings.ToLower(string(t.Status)), "not finished")
		}
		t.Status = domain.TicketStatusOpen
		return nil
	}, "")
}

// transition runs lock-read, capability and precondition checks, the write,
// the optional comment and the read-back in one transaction.
func (s *TicketService) transition(ctx context.Context, actor string, id int64, action auth.Action, apply func(*domain.Ticket) error, comment string) (*TicketDetail, error) {
	if !s.policy.IsResponder(actor) {
		return nil, apperrors.NewUnauthorized("only the support team can " + string(action) + " tickets")
	}
	comment = strings.TrimSpace(comment)

	var (
		detail    TicketDetail
		before    domain.Ticket
		commentID int64
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ticket, err := tx.GetTicketForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before = *ticket
		if err := apply(ticket); err != nil {
			return err
		}
		ticket.UpdatedAt = s.now()
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		if comment != "" {
			c := &domain.Comment{TicketID: id, AuthorID: actor, Text: comment, CreatedAt: ticket.UpdatedAt}
			if err := tx.InsertComment(ctx, c); err != nil {
				return err
			}
			commentID = c.ID
		}
		comments, err := tx.ListComments(ctx, id)
		if err != nil {
			return err
		}
		detail = TicketDetail{Ticket: *ticket, Comments: comments}
		return nil
	})
	if err != nil {
		return nil, s.mapStoreError(err, id)
	}

	s.logger.Info("ticket transitioned",
		zap.Int64("ticket_id", id),
		zap.String("actor", actor),
		zap.String("action", string(action)),
		zap.String("from", string(before.Status)),
		zap.String("to", string(detail.Ticket.Status)))
	s.publishTransition(ctx, actor, before, detail.Ticket, comment, commentID)
	return &detail, nil
}

func (s *TicketService) publishTransition(ctx context.Context, actor string, before, after domain.Ticket, comment string, commentID int64) {
	if before.Status != after.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: after.ID,
			Actor:    actor,
			Payload:  events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status},
		})
	}
	if before.AssignedTo != after.AssignedTo {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: after.ID,
			Actor:    actor,
			Payload: events.TicketAssignedPayload{
				PreviousAssignee: before.AssignedTo,
				Assignee:         after.AssignedTo,
				Comment:          comment,
			},
		})
	}
	if commentID != 0 {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCommented,
			TicketID: after.ID,
			Actor:    actor,
			Payload:  events.TicketCommentedPayload{CommentID: commentID, BodyPreview: stringPreview(comment, 120)},
		})
	}
}

func (s *TicketService) validateSubmission(input *SubmitInput) error {
	input.Campaign = strings.TrimSpace(input.Campaign)
	input.IssueType = strings.TrimSpace(input.IssueType)
	input.Details = strings.TrimSpace(input.Details)
	input.ExternalLink = trimOptional(input.ExternalLink)
	input.Attachment = trimOptional(input.Attachment)

	problems := map[string]any{}
	switch {
	case input.Campaign == "":
		problems["campaign"] = "pick a campaign"
	case !s.catalog.HasCampaign(input.Campaign):
		problems["campaign"] = "unknown campaign"
	}
	switch {
	case input.IssueType == "":
		problems["issue_type"] = "pick an issue type"
	case !s.catalog.HasIssueType(input.IssueType):
		problems["issue_type"] = "unknown issue type"
	}
	switch {
	case input.Priority == "":
		problems["priority"] = "pick a priority"
	case !input.Priority.Valid():
		problems["priority"] = "unknown priority"
	}
	switch {
	case input.Details == "":
		problems["details"] = "describe the issue"
	case len(input.Details) > maxDetailsLength:
		problems["details"] = "keep the details under 2500 characters"
	}
	if input.ExternalLink != nil {
		if u, err := url.ParseRequestURI(*input.ExternalLink); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			problems["external_link"] = "enter a full http(s) link"
		}
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("the ticket is missing required information", problems)
	}
	return nil
}

func (s *TicketService) mapStoreError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewUpstream("the ticket database", err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func illegal(t *domain.Ticket, message, precondition string) error {
	return apperrors.NewIllegalTransition(message, map[string]any{
		"ticket_id":    t.ID,
		"status":       string(t.Status),
		"precondition": precondition,
	})
}

func isActive(status domain.TicketStatus) bool {
	return status == domain.TicketStatusOpen || status == domain.TicketStatusInProgress
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" || strings.EqualFold(trimmed, "N/A") {
		return nil
	}
	return &trimmed
}

// stringPreview shortens body to at most max runes.
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
