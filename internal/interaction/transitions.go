package interaction

import (
	"context"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/service"
	"github.com/spec-kit/ticketbot/internal/view"
	"github.com/spec-kit/ticketbot/internal/viewstate"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// Submission is a submitted modal.
type Submission struct {
	Actor      string
	CallbackID string
	Values     viewstate.Values
	Metadata   string
}

// TransitionButton handles a ticket action button on a card or a browser row.
// Claim and reassign open a follow-up form; the others apply immediately.
func (c *Coordinator) TransitionButton(ctx context.Context, actor, triggerID string, surface Surface, pressed slack.BlockAction) (err error) {
	defer func() { c.record(ctx, KindTransitionButton, actor, err) }()

	action, ok := auth.ParseAction(pressed.ActionID)
	id, convErr := strconv.ParseInt(pressed.Value, 10, 64)
	if !ok || convErr != nil {
		return c.transitionFailed(ctx, actor, surface, id,
			apperrors.NewValidationError("this button is not recognized, please reopen the ticket", map[string]any{"action": pressed.ActionID, "value": pressed.Value}))
	}

	switch action {
	case auth.ActionClaim, auth.ActionReassign:
		return c.openConfirm(ctx, actor, triggerID, surface, action, id)
	}

	var detail *service.TicketDetail
	switch action {
	case auth.ActionResolve:
		detail, err = c.tickets.Resolve(ctx, actor, id)
	case auth.ActionClose:
		detail, err = c.tickets.Close(ctx, actor, id)
	case auth.ActionReopen:
		detail, err = c.tickets.Reopen(ctx, actor, id)
	}
	if err != nil {
		return c.transitionFailed(ctx, actor, surface, id, err)
	}
	return c.renderSurface(ctx, actor, surface, detail)
}

// openConfirm opens the claim or reassign form. A card opens it as a new
// modal; a browser pushes it on top of itself.
func (c *Coordinator) openConfirm(ctx context.Context, actor, triggerID string, surface Surface, action auth.Action, id int64) error {
	if !c.policy().IsResponder(actor) {
		return c.transitionFailed(ctx, actor, surface, id,
			apperrors.NewUnauthorized("only the support team can "+string(action)+" tickets"))
	}
	detail, err := c.tickets.Get(ctx, id)
	if err != nil {
		return c.transitionFailed(ctx, actor, surface, id, err)
	}
	if !auth.ActionsFor(true, detail.Ticket.Status, detail.Ticket.AssignedTo).Has(action) {
		return c.transitionFailed(ctx, actor, surface, id, apperrors.NewIllegalTransition(
			fmt.Sprintf("ticket %s has changed since this view was loaded", view.TicketRef(id)),
			map[string]any{"ticket_id": id, "status": string(detail.Ticket.Status), "precondition": "stale view"}))
	}

	origin := auth.Origin{
		Action:    action,
		TicketID:  id,
		Actor:     actor,
		ChannelID: surface.ChannelID,
		MessageTS: surface.MessageTS,
		ViewID:    surface.ViewID,
	}
	if !surface.FromCard() {
		origin.MessageTS = ""
		if state, decodeErr := viewstate.Decode(surface.Values, surface.Metadata); decodeErr == nil {
			origin.List = &state
		}
	}
	metadata, err := c.signer.Sign(origin)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	modal := c.renderer.ClaimModal(detail.Ticket, metadata)
	if action == auth.ActionReassign {
		modal = c.renderer.ReassignModal(detail.Ticket, metadata)
	}
	if surface.FromCard() {
		_, err = c.chat.OpenView(ctx, triggerID, modal)
	} else {
		_, err = c.chat.PushView(ctx, triggerID, modal)
	}
	return err
}

// ConfirmTransition applies a submitted claim or reassign form and re-renders
// the surface the form was opened from. A nil response closes the form.
func (c *Coordinator) ConfirmTransition(ctx context.Context, sub Submission) (resp *slack.ViewSubmissionResponse, err error) {
	defer func() { c.record(ctx, KindConfirm, sub.Actor, err) }()

	origin, err := c.signer.Verify(sub.Metadata)
	if err != nil {
		return errorResponse(err), err
	}
	if origin.Actor != sub.Actor {
		err = apperrors.NewUnauthorized("this form was opened by someone else")
		return errorResponse(err), err
	}

	var detail *service.TicketDetail
	comment := view.ParseComment(sub.Values)
	switch {
	case sub.CallbackID == view.ClaimCallbackID && origin.Action == auth.ActionClaim:
		detail, err = c.tickets.Claim(ctx, sub.Actor, origin.TicketID, comment)
	case sub.CallbackID == view.ReassignCallbackID && origin.Action == auth.ActionReassign:
		detail, err = c.tickets.Reassign(ctx, sub.Actor, origin.TicketID, view.ParseAssignee(sub.Values), comment)
	default:
		err = apperrors.NewValidationError("this form does not match its ticket action", map[string]any{"callback_id": sub.CallbackID})
		return errorResponse(err), err
	}

	surface := originSurface(origin)
	if err != nil {
		if fields, ok := view.FieldErrors(err); ok {
			return slack.NewErrorsViewSubmissionResponse(fields), err
		}
		if refreshErr := c.transitionFailed(ctx, sub.Actor, surface, origin.TicketID, err); refreshErr != err {
			c.logger.Warn("origin refresh failed", zap.Int64("ticket_id", origin.TicketID), zap.Error(refreshErr))
		}
		return errorResponse(err), err
	}
	if renderErr := c.renderSurface(ctx, sub.Actor, surface, detail); renderErr != nil {
		c.logger.Warn("origin re-render failed after commit", zap.Int64("ticket_id", origin.TicketID), zap.Error(renderErr))
		c.notifier.Alert(ctx, KindConfirm, renderErr)
	}
	return nil, nil
}

// renderSurface re-renders the origin after a committed transition.
func (c *Coordinator) renderSurface(ctx context.Context, actor string, surface Surface, detail *service.TicketDetail) error {
	if surface.FromCard() {
		return c.chat.UpdateMessage(ctx, surface.cardRef(), c.card(detail, ""))
	}
	state, err := viewstate.Decode(surface.Values, surface.Metadata)
	if err != nil {
		state = viewstate.State{Scope: viewstate.ScopeAll}
	}
	return c.refreshBrowser(ctx, actor, surface, state, fmt.Sprintf("%s is now %s", view.TicketRef(detail.Ticket.ID), view.StatusLabel(detail.Ticket.Status)))
}

// transitionFailed reports cause on the originating surface. A card is
// re-rendered from fresh state with the notice, except that a capability
// failure goes to the actor alone since the card itself is unchanged.
func (c *Coordinator) transitionFailed(ctx context.Context, actor string, surface Surface, id int64, cause error) error {
	notice := userMessage(cause)
	if !surface.FromCard() {
		return c.browserNotice(ctx, actor, surface, cause)
	}
	if apperrors.CodeOf(cause) != apperrors.CodeUnauthorized {
		if detail, err := c.tickets.Get(ctx, id); err == nil {
			return renderFailure(cause, c.chat.UpdateMessage(ctx, surface.cardRef(), c.card(detail, notice)))
		}
	}
	return renderFailure(cause, c.chat.PostEphemeral(ctx, surface.ChannelID, actor, view.Notice(notice)))
}

// card renders a ticket card for the shared channel, so it carries every
// button a responder may press. Capability is checked again on each press.
func (c *Coordinator) card(detail *service.TicketDetail, notice string) chat.Message {
	msg := c.renderer.RenderTicketCard(detail.Ticket, detail.Comments,
		auth.ActionsFor(true, detail.Ticket.Status, detail.Ticket.AssignedTo))
	return view.WithNotice(msg, notice)
}

func originSurface(o auth.Origin) Surface {
	s := Surface{ChannelID: o.ChannelID, MessageTS: o.MessageTS, ViewID: o.ViewID}
	if o.List != nil {
		encoded := viewstate.Encode(*o.List)
		s.Values, s.Metadata = encoded.Values, encoded.Metadata
	}
	return s
}

func errorResponse(err error) *slack.ViewSubmissionResponse {
	modal := view.ErrorModal(userMessage(err))
	return slack.NewUpdateViewSubmissionResponse(&modal)
}
