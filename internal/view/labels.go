// Package view renders tickets, browsers and forms as Slack Block Kit. Every
// function here is pure: same inputs, same JSON.
package view

import (
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/catalog"
	"github.com/spec-kit/ticketbot/internal/domain"
)

var statusLabels = map[domain.TicketStatus]string{
	domain.TicketStatusOpen:       "🟢 Open",
	domain.TicketStatusInProgress: "🔵 In Progress",
	domain.TicketStatusResolved:   "🟡 Resolved",
	domain.TicketStatusClosed:     "🔴 Closed",
}

var priorityLabels = map[domain.TicketPriority]string{
	domain.TicketPriorityHigh:   "🔴 High",
	domain.TicketPriorityMedium: "🟡 Medium",
	domain.TicketPriorityLow:    "🔵 Low",
}

type buttonSpec struct {
	text  string
	style slack.Style
}

var actionButtons = map[auth.Action]buttonSpec{
	auth.ActionClaim:    {text: "🖐 Assign to Me", style: slack.StylePrimary},
	auth.ActionReassign: {text: "🔁 Reassign", style: slack.StylePrimary},
	auth.ActionResolve:  {text: "🟢 Resolve", style: slack.StylePrimary},
	auth.ActionClose:    {text: "❌ Close", style: slack.StyleDanger},
	auth.ActionReopen:   {text: "🔄 Reopen", style: slack.StyleDefault},
}

// StatusLabel is the single presentation of a status.
func StatusLabel(s domain.TicketStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// PriorityLabel is the single presentation of a priority.
func PriorityLabel(p domain.TicketPriority) string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return string(p)
}

// TicketRef is the human ticket identifier, e.g. T42.
func TicketRef(id int64) string {
	return fmt.Sprintf("T%d", id)
}

// Renderer holds the fixed inputs shared by every view.
type Renderer struct {
	catalog  *catalog.Catalog
	location *time.Location
}

// NewRenderer builds a renderer. Timestamps are shown in loc.
func NewRenderer(c *catalog.Catalog, loc *time.Location) *Renderer {
	if c == nil {
		c = catalog.MustDefault()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{catalog: c, location: loc}
}

func (r *Renderer) timestamp(t time.Time) string {
	return t.In(r.location).Format("01/02/2006 15:04:05")
}

func (r *Renderer) day(t time.Time) string {
	return t.In(r.location).Format("Jan 2, 2006")
}

func userMention(id string) string {
	if id == "" || id == domain.Unassigned {
		return "❌ Unassigned"
	}
	return "<@" + id + ">"
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(markdown(text), nil, nil)
}

func contextText(blockID, text string) *slack.ContextBlock {
	return slack.NewContextBlock(blockID, markdown(text))
}

// actionRow renders one button per action, or nil for an empty set.
func actionRow(blockID string, ticketID int64, actions auth.ActionSet) *slack.ActionBlock {
	if actions.Empty() {
		return nil
	}
	value := fmt.Sprintf("%d", ticketID)
	elements := make([]slack.BlockElement, 0, len(actions))
	for _, action := range actions {
		spec := actionButtons[action]
		button := slack.NewButtonBlockElement(string(action), value, plain(spec.text))
		if spec.style != slack.StyleDefault {
			button = button.WithStyle(spec.style)
		}
		elements = append(elements, button)
	}
	return slack.NewActionBlock(blockID, elements...)
}
