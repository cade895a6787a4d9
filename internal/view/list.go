package view

import (
	"fmt"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/repository"
	"github.com/spec-kit/ticketbot/internal/viewstate"
)

// Identifiers of the ticket browser.
const (
	BrowserCallbackID  = "ticket_browser"
	PaginationBlockID  = "pagination"
	ToolsBlockID       = "browser_tools"
	PrevPageActionID   = "page_prev"
	NextPageActionID   = "page_next"
	ExportActionID     = "export"
	RowBlockPrefix     = "row_"
	browserTitleAll    = "All Tickets"
	browserTitleMine   = "My Tickets"
	emptyBrowserText   = "No tickets match these filters."
	paginationTemplate = "Showing %d–%d of %d · page %d of %d"
)

// RowBlockID is the action block id of one browser row.
func RowBlockID(ticketID int64) string {
	return RowBlockPrefix + strconv.FormatInt(ticketID, 10)
}

// ParseRowBlockID extracts the ticket id of a browser row block.
func ParseRowBlockID(blockID string) (int64, bool) {
	if len(blockID) <= len(RowBlockPrefix) || blockID[:len(RowBlockPrefix)] != RowBlockPrefix {
		return 0, false
	}
	id, err := strconv.ParseInt(blockID[len(RowBlockPrefix):], 10, 64)
	return id, err == nil
}

// RenderTicketList renders the browser modal. Filter controls reflect state,
// rows carry per-ticket actions for the actor's capability, and pagination is
// present only when there is more than one page.
func (r *Renderer) RenderTicketList(page repository.TicketPage, state viewstate.State, responder bool) slack.ModalViewRequest {
	return r.renderTicketList(page, state, responder, "")
}

// RenderTicketListNotice is RenderTicketList with a notice on top.
func (r *Renderer) RenderTicketListNotice(page repository.TicketPage, state viewstate.State, responder bool, notice string) slack.ModalViewRequest {
	return r.renderTicketList(page, state, responder, notice)
}

func (r *Renderer) renderTicketList(page repository.TicketPage, state viewstate.State, responder bool, notice string) slack.ModalViewRequest {
	state = state.WithPage(page.Page)
	encoded := viewstate.Encode(state)

	var blocks []slack.Block
	if notice != "" {
		blocks = append(blocks, contextText(NoticeBlockID, "⚠️ "+notice))
	}
	blocks = append(blocks, r.filterBlocks(encoded.Values)...)
	if responder {
		blocks = append(blocks, slack.NewActionBlock(ToolsBlockID,
			slack.NewButtonBlockElement(ExportActionID, "csv", plain("📤 Export CSV"))))
	}
	blocks = append(blocks, slack.NewDividerBlock())

	if len(page.Tickets) == 0 {
		blocks = append(blocks, section(emptyBrowserText))
	} else {
		first := page.Page*page.PageSize + 1
		last := first + len(page.Tickets) - 1
		blocks = append(blocks, contextText("page_summary",
			fmt.Sprintf(paginationTemplate, first, last, page.Total, page.Page+1, page.Pages())))
		for _, t := range page.Tickets {
			blocks = append(blocks, section(r.rowText(t)))
			if row := actionRow(RowBlockID(t.ID), t.ID, auth.ActionsFor(responder, t.Status, t.AssignedTo)); row != nil {
				blocks = append(blocks, row)
			}
		}
	}
	if nav := paginationRow(page); nav != nil {
		blocks = append(blocks, slack.NewDividerBlock(), nav)
	}

	title := browserTitleAll
	if state.Scope == viewstate.ScopeMine {
		title = browserTitleMine
	}
	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      BrowserCallbackID,
		Title:           plain(title),
		Close:           plain("Close"),
		Blocks:          slack.Blocks{BlockSet: blocks},
		PrivateMetadata: encoded.Metadata,
	}
}

func (r *Renderer) rowText(t domain.Ticket) string {
	return fmt.Sprintf("*%s* · %s · %s\n%s / %s\n👤 %s · 📅 %s",
		TicketRef(t.ID), StatusLabel(t.Status), PriorityLabel(t.Priority),
		t.Campaign, r.catalog.IssueTypeLabel(t.IssueType),
		userMention(t.AssignedTo), r.day(t.CreatedAt))
}

func (r *Renderer) filterBlocks(values viewstate.Values) []slack.Block {
	statusOpts := []*slack.OptionBlockObject{option(viewstate.All, "All statuses")}
	for _, s := range domain.TicketStatuses {
		statusOpts = append(statusOpts, option(string(s), StatusLabel(s)))
	}
	priorityOpts := []*slack.OptionBlockObject{option(viewstate.All, "All priorities")}
	for _, p := range domain.TicketPriorities {
		priorityOpts = append(priorityOpts, option(string(p), PriorityLabel(p)))
	}
	campaignOpts := []*slack.OptionBlockObject{option(viewstate.All, "All campaigns")}
	for _, c := range r.catalog.Campaigns {
		campaignOpts = append(campaignOpts, option(c.Value, c.DisplayLabel()))
	}

	selects := values[viewstate.FiltersBlockID]
	dates := values[viewstate.DatesBlockID]

	start := slack.NewDatePickerBlockElement(viewstate.StartActionID)
	start.Placeholder = plain("From")
	start.InitialDate = dates[viewstate.StartActionID].SelectedDate
	end := slack.NewDatePickerBlockElement(viewstate.EndActionID)
	end.Placeholder = plain("To")
	end.InitialDate = dates[viewstate.EndActionID].SelectedDate

	return []slack.Block{
		slack.NewActionBlock(viewstate.FiltersBlockID,
			filterSelect(viewstate.StatusActionID, "Status", statusOpts, selects[viewstate.StatusActionID]),
			filterSelect(viewstate.PriorityActionID, "Priority", priorityOpts, selects[viewstate.PriorityActionID]),
			filterSelect(viewstate.CampaignActionID, "Campaign", campaignOpts, selects[viewstate.CampaignActionID]),
		),
		slack.NewActionBlock(viewstate.DatesBlockID, start, end),
	}
}

func filterSelect(actionID, placeholder string, opts []*slack.OptionBlockObject, current slack.BlockAction) *slack.SelectBlockElement {
	el := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain(placeholder), actionID, opts...)
	el.InitialOption = opts[0]
	for _, o := range opts {
		if o.Value == current.SelectedOption.Value {
			el.InitialOption = o
		}
	}
	return el
}

func option(value, text string) *slack.OptionBlockObject {
	return slack.NewOptionBlockObject(value, plain(text), nil)
}

func paginationRow(page repository.TicketPage) *slack.ActionBlock {
	pages := page.Pages()
	if pages <= 1 {
		return nil
	}
	var elements []slack.BlockElement
	if page.Page > 0 {
		elements = append(elements, slack.NewButtonBlockElement(PrevPageActionID, strconv.Itoa(page.Page-1), plain("◀ Previous")))
	}
	if page.Page < pages-1 {
		elements = append(elements, slack.NewButtonBlockElement(NextPageActionID, strconv.Itoa(page.Page+1), plain("Next ▶")))
	}
	return slack.NewActionBlock(PaginationBlockID, elements...)
}
