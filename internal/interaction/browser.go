package interaction

import (
	"context"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/view"
	"github.com/spec-kit/ticketbot/internal/viewstate"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// OpenBrowser opens the ticket browser on its first page. The all scope is
// limited to responders.
func (c *Coordinator) OpenBrowser(ctx context.Context, actor, triggerID string, scope viewstate.Scope) (err error) {
	defer func() { c.record(ctx, KindOpenBrowser, actor, err) }()

	state := viewstate.State{Scope: scope}
	responder := c.policy().IsResponder(actor)
	if scope == viewstate.ScopeAll && !responder {
		return apperrors.NewUnauthorized("only the support team can browse every ticket")
	}
	modal, queryErr := c.listModal(ctx, actor, state, responder, "")
	if _, openErr := c.chat.OpenView(ctx, triggerID, modal); openErr != nil {
		return renderFailure(queryErr, openErr)
	}
	return queryErr
}

// FilterChange applies one changed filter control, resets to the first page
// and replaces the browser with a single update.
func (c *Coordinator) FilterChange(ctx context.Context, actor string, surface Surface, action slack.BlockAction) (err error) {
	defer func() { c.record(ctx, KindFilterChange, actor, err) }()

	values := viewstate.Merge(surface.Values, action.BlockID, action)
	state, err := viewstate.Decode(values, surface.Metadata)
	if err != nil {
		return c.browserNotice(ctx, actor, surface, err)
	}
	return c.refreshBrowser(ctx, actor, surface, state.WithPage(0), "")
}

// PageChange moves the browser to the page carried by the pressed button.
func (c *Coordinator) PageChange(ctx context.Context, actor string, surface Surface, action slack.BlockAction) (err error) {
	defer func() { c.record(ctx, KindPageChange, actor, err) }()

	state, err := viewstate.Decode(surface.Values, surface.Metadata)
	if err != nil {
		return c.browserNotice(ctx, actor, surface, err)
	}
	page, convErr := strconv.Atoi(action.Value)
	if convErr != nil || page < 0 {
		return c.browserNotice(ctx, actor, surface,
			apperrors.NewValidationError(fmt.Sprintf("page %q is not valid", action.Value), map[string]any{"page": action.Value}))
	}
	return c.refreshBrowser(ctx, actor, surface, state.WithPage(page), "")
}

// ExportRequest uploads the browser's current result set as CSV to the
// actor's DMs and re-renders the browser with the outcome.
func (c *Coordinator) ExportRequest(ctx context.Context, actor string, surface Surface) (err error) {
	defer func() { c.record(ctx, KindExportRequest, actor, err) }()

	state, err := viewstate.Decode(surface.Values, surface.Metadata)
	if err != nil {
		return c.browserNotice(ctx, actor, surface, err)
	}
	result, err := c.exports.Export(ctx, actor, state)
	if err != nil {
		refreshErr := c.refreshBrowser(ctx, actor, surface, state, userMessage(err))
		return renderFailure(err, refreshErr)
	}
	notice := fmt.Sprintf("exported %d ticket(s) to %s, check your direct messages", result.Rows, result.Filename)
	if result.Truncated {
		notice = fmt.Sprintf("exported the first %d matching tickets to %s, narrow the filters to export the rest", result.Rows, result.Filename)
	}
	return c.refreshBrowser(ctx, actor, surface, state, notice)
}

// Summary opens the ticket counts modal for responders.
func (c *Coordinator) Summary(ctx context.Context, actor, triggerID string) (err error) {
	defer func() { c.record(ctx, KindSummary, actor, err) }()

	if !c.policy().IsResponder(actor) {
		return apperrors.NewUnauthorized("only the support team can view the ticket summary")
	}
	summary, err := c.store.Summary(ctx)
	if err != nil {
		err = apperrors.NewUpstream("the ticket database", err)
		if _, openErr := c.chat.OpenView(ctx, triggerID, view.ErrorModal(userMessage(err))); openErr != nil {
			return renderFailure(err, openErr)
		}
		return err
	}
	_, err = c.chat.OpenView(ctx, triggerID, c.renderer.RenderSummary(summary))
	return err
}

// refreshBrowser re-queries state and replaces the browser in place. A failed
// query replaces it with an error view instead.
func (c *Coordinator) refreshBrowser(ctx context.Context, actor string, surface Surface, state viewstate.State, notice string) error {
	responder := c.policy().IsResponder(actor)
	if state.Scope == viewstate.ScopeAll && !responder {
		state.Scope = viewstate.ScopeMine
	}
	modal, queryErr := c.listModal(ctx, actor, state, responder, notice)
	if err := c.chat.UpdateView(ctx, surface.ViewID, surface.Hash, modal); err != nil {
		return renderFailure(queryErr, err)
	}
	return queryErr
}

// browserNotice re-renders the browser with cause as a notice, keeping every
// filter that still decodes. Unreadable metadata gets the error view.
func (c *Coordinator) browserNotice(ctx context.Context, actor string, surface Surface, cause error) error {
	state, decodeErr := viewstate.Salvage(surface.Values, surface.Metadata)
	if decodeErr != nil {
		if err := c.chat.UpdateView(ctx, surface.ViewID, surface.Hash, view.ErrorModal(userMessage(cause))); err != nil {
			return renderFailure(cause, err)
		}
		return cause
	}
	return renderFailure(cause, c.refreshBrowser(ctx, actor, surface, state, userMessage(cause)))
}

// listModal runs the browser query. On a store failure it returns the error
// view together with the error.
func (c *Coordinator) listModal(ctx context.Context, actor string, state viewstate.State, responder bool, notice string) (slack.ModalViewRequest, error) {
	page, err := c.store.QueryPage(ctx, c.builder.Build(state, actor), state.Page, c.pageSize)
	if err != nil {
		err = apperrors.NewUpstream("the ticket database", err)
		return view.ErrorModal(userMessage(err)), err
	}
	return c.renderer.RenderTicketListNotice(page, state, responder, notice), nil
}
