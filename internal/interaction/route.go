package interaction

import (
	"context"
	"strings"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/view"
	"github.com/spec-kit/ticketbot/internal/viewstate"
)

// KindOf classifies a block action by the control that produced it.
func KindOf(action slack.BlockAction) string {
	switch action.ActionID {
	case viewstate.StatusActionID, viewstate.PriorityActionID, viewstate.CampaignActionID,
		viewstate.StartActionID, viewstate.EndActionID:
		return KindFilterChange
	case view.PrevPageActionID, view.NextPageActionID:
		return KindPageChange
	case view.ExportActionID:
		return KindExportRequest
	}
	if _, ok := auth.ParseAction(action.ActionID); ok {
		return KindTransitionButton
	}
	return KindUnknown
}

// BlockAction routes one block action to its handler.
func (c *Coordinator) BlockAction(ctx context.Context, actor, triggerID string, surface Surface, action slack.BlockAction) error {
	switch KindOf(action) {
	case KindFilterChange:
		return c.FilterChange(ctx, actor, surface, action)
	case KindPageChange:
		return c.PageChange(ctx, actor, surface, action)
	case KindExportRequest:
		return c.ExportRequest(ctx, actor, surface)
	case KindTransitionButton:
		return c.TransitionButton(ctx, actor, triggerID, surface, action)
	}
	c.record(ctx, KindUnknown, actor, nil)
	return nil
}

// ViewSubmission routes a submitted modal by callback id. ok is false for
// callbacks this bot does not own.
func (c *Coordinator) ViewSubmission(ctx context.Context, sub Submission) (resp *slack.ViewSubmissionResponse, ok bool, err error) {
	switch strings.TrimSpace(sub.CallbackID) {
	case view.NewTicketCallbackID:
		resp, err = c.SubmitForm(ctx, sub)
		return resp, true, err
	case view.ClaimCallbackID, view.ReassignCallbackID:
		resp, err = c.ConfirmTransition(ctx, sub)
		return resp, true, err
	}
	return nil, false, nil
}
