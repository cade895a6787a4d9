package interaction

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/service"
	"github.com/spec-kit/ticketbot/internal/view"
)

// OpenSubmitForm opens the new ticket form.
func (c *Coordinator) OpenSubmitForm(ctx context.Context, actor, triggerID string) (err error) {
	defer func() { c.record(ctx, KindOpenForm, actor, err) }()
	_, err = c.chat.OpenView(ctx, triggerID, c.renderer.NewTicketModal())
	return err
}

// SubmitForm creates a ticket from the submitted form, posts its card to the
// responders channel and replaces the form with a confirmation. Field
// problems are shown inline on the form.
func (c *Coordinator) SubmitForm(ctx context.Context, sub Submission) (resp *slack.ViewSubmissionResponse, err error) {
	defer func() { c.record(ctx, KindSubmitForm, sub.Actor, err) }()

	form := view.ParseNewTicketForm(sub.Values)
	detail, err := c.tickets.Submit(ctx, sub.Actor, service.SubmitInput{
		Campaign:     form.Campaign,
		IssueType:    form.IssueType,
		Priority:     form.Priority,
		Details:      form.Details,
		ExternalLink: form.ExternalLink,
		Attachment:   form.Attachment,
	})
	if err != nil {
		if fields, ok := view.FieldErrors(err); ok {
			return slack.NewErrorsViewSubmissionResponse(fields), err
		}
		return errorResponse(err), err
	}

	if c.ticketChannel != "" {
		if _, postErr := c.chat.PostMessage(ctx, c.ticketChannel, c.card(detail, "")); postErr != nil {
			c.logger.Warn("ticket card post failed after commit", zap.Int64("ticket_id", detail.Ticket.ID), zap.Error(postErr))
			c.notifier.Alert(ctx, KindSubmitForm, postErr)
		}
	}
	modal := c.renderer.SubmittedModal(detail.Ticket)
	return slack.NewUpdateViewSubmissionResponse(&modal), nil
}
