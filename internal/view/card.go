package view

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/domain"
)

// Block ids of the ticket card.
const (
	CardActionsBlockID = "ticket_actions"
	NoticeBlockID      = "notice"

	maxSectionText = 2900
)

// RenderTicketCard renders the persistent ticket message from its three inputs
// only. An empty action set renders no button row.
func (r *Renderer) RenderTicketCard(t domain.Ticket, comments []domain.Comment, actions auth.ActionSet) chat.Message {
	blocks := []slack.Block{
		slack.NewHeaderBlock(plain("🎫 Ticket " + TicketRef(t.ID))),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			markdown("📂 *Campaign:*\n" + t.Campaign),
			markdown("📌 *Issue:*\n" + r.catalog.IssueTypeLabel(t.IssueType)),
			markdown("⚡ *Priority:*\n" + PriorityLabel(t.Priority)),
			markdown("🔄 *Status:*\n" + StatusLabel(t.Status)),
			markdown("👤 *Assigned To:*\n" + userMention(t.AssignedTo)),
			markdown("🙋 *Submitted By:*\n" + userMention(t.CreatedBy)),
		}, nil),
		slack.NewDividerBlock(),
		section(fmt.Sprintf("🖋️ *Details:* %s\n\n🔗 *Salesforce Link:* %s", t.Details, optional(t.ExternalLink, "N/A"))),
		section("📂 *File Attachment:* " + optional(t.Attachment, "No file uploaded")),
		contextText("ticket_dates", fmt.Sprintf("📅 Created %s · Updated %s", r.timestamp(t.CreatedAt), r.timestamp(t.UpdatedAt))),
		section(r.transcript(comments)),
	}
	if row := actionRow(CardActionsBlockID, t.ID, actions); row != nil {
		blocks = append(blocks, slack.NewDividerBlock(), row)
	}
	return chat.Message{
		Text:   fmt.Sprintf("Ticket %s: %s / %s (%s)", TicketRef(t.ID), t.Campaign, t.IssueType, t.Status),
		Blocks: blocks,
	}
}

// WithNotice prepends a short notice to a rendered message.
func WithNotice(msg chat.Message, notice string) chat.Message {
	if strings.TrimSpace(notice) == "" {
		return msg
	}
	blocks := make([]slack.Block, 0, len(msg.Blocks)+1)
	blocks = append(blocks, contextText(NoticeBlockID, "⚠️ "+notice))
	blocks = append(blocks, msg.Blocks...)
	return chat.Message{Text: notice, Blocks: blocks}
}

// Notice renders a standalone notice, e.g. for an ephemeral reply.
func Notice(text string) chat.Message {
	return chat.Message{Text: text, Blocks: []slack.Block{section("⚠️ " + text)}}
}

func (r *Renderer) transcript(comments []domain.Comment) string {
	if len(comments) == 0 {
		return "💬 *Comments:* none"
	}
	entries := make([]string, len(comments))
	for i, c := range comments {
		entries[i] = fmt.Sprintf("<@%s>: %s (%s)", c.AuthorID, c.Text, r.timestamp(c.CreatedAt))
	}
	// Section text is capped by Slack; drop the oldest entries first.
	size, keep := 0, len(entries)
	for keep > 0 && size+len(entries[keep-1])+1 <= maxSectionText {
		size += len(entries[keep-1]) + 1
		keep--
	}
	head := "💬 *Comments:*"
	if keep > 0 {
		head += fmt.Sprintf(" (%d earlier not shown)", keep)
	}
	return head + "\n" + strings.Join(entries[keep:], "\n")
}

func optional(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return *v
}
