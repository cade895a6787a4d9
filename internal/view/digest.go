package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/domain"
)

// SummaryCallbackID identifies the summary modal.
const SummaryCallbackID = "ticket_summary"

const maxDigestRows = 40

// RenderDigest lists stale tickets for the responders channel.
func (r *Renderer) RenderDigest(stale []domain.Ticket, idle time.Duration) chat.Message {
	hours := int(idle.Hours())
	header := fmt.Sprintf("🕰️ *%d ticket(s) have not been updated in %s*", len(stale), humanHours(hours))
	lines := make([]string, 0, len(stale))
	for i, t := range stale {
		if i == maxDigestRows {
			lines = append(lines, fmt.Sprintf("…and %d more", len(stale)-maxDigestRows))
			break
		}
		lines = append(lines, fmt.Sprintf("• *%s* %s · %s · %s / %s · %s · last update %s",
			TicketRef(t.ID), StatusLabel(t.Status), PriorityLabel(t.Priority),
			t.Campaign, t.IssueType, userMention(t.AssignedTo), r.day(t.UpdatedAt)))
	}
	blocks := []slack.Block{section(header)}
	for _, chunk := range chunkLines(lines, maxSectionText) {
		blocks = append(blocks, section(chunk))
	}
	return chat.Message{
		Text:   fmt.Sprintf("%d stale ticket(s) need attention", len(stale)),
		Blocks: blocks,
	}
}

// chunkLines joins lines into texts of at most limit bytes each, never
// splitting a line.
func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var b strings.Builder
	for _, line := range lines {
		if b.Len() > 0 && b.Len()+1+len(line) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// OverdueReminder is the DM sent to the assignee of an overdue ticket.
func (r *Renderer) OverdueReminder(t domain.Ticket) chat.Message {
	text := fmt.Sprintf("⏰ Reminder: Ticket %s is overdue. Please review.", TicketRef(t.ID))
	return chat.Message{
		Text: text,
		Blocks: []slack.Block{
			section(fmt.Sprintf("⏰ *Reminder:* Ticket *%s* is overdue. Please review.\n%s / %s · %s · opened %s",
				TicketRef(t.ID), t.Campaign, t.IssueType, StatusLabel(t.Status), r.day(t.CreatedAt))),
		},
	}
}

// AssignmentNotice is the DM sent to a ticket's new assignee.
func (r *Renderer) AssignmentNotice(t domain.Ticket, actor, comment string) chat.Message {
	text := fmt.Sprintf("🎫 %s assigned you ticket %s", userMention(actor), TicketRef(t.ID))
	body := fmt.Sprintf("🎫 %s assigned you ticket *%s*\n%s / %s · %s",
		userMention(actor), TicketRef(t.ID), t.Campaign, r.catalog.IssueTypeLabel(t.IssueType), PriorityLabel(t.Priority))
	if comment != "" {
		body += "\n💬 " + comment
	}
	return chat.Message{Text: text, Blocks: []slack.Block{section(body)}}
}

// NewTicketNotice acknowledges a submission to its creator.
func (r *Renderer) NewTicketNotice(t domain.Ticket) chat.Message {
	text := fmt.Sprintf("✅ Your ticket %s was submitted. We'll keep you posted.", TicketRef(t.ID))
	return chat.Message{Text: text, Blocks: []slack.Block{section(text)}}
}

// RenderSummary renders ticket counts.
func (r *Renderer) RenderSummary(s domain.Summary) slack.ModalViewRequest {
	lines := []string{fmt.Sprintf("📋 *Total Tickets:* %d", s.Total)}
	for _, status := range domain.TicketStatuses {
		lines = append(lines, fmt.Sprintf("%s: *%d*", StatusLabel(status), s.ByStatus[status]))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("🚨 *High priority, still active:* %d", s.HighPriority),
		fmt.Sprintf("❌ *Unassigned, still active:* %d", s.Unassigned),
	)
	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: SummaryCallbackID,
		Title:      plain("Ticket Summary"),
		Close:      plain("Close"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(plain("📊 Ticket Summary")),
			section(strings.Join(lines, "\n")),
		}},
	}
}

func humanHours(h int) string {
	if h >= 24 && h%24 == 0 {
		return fmt.Sprintf("%d days", h/24)
	}
	return fmt.Sprintf("%d hours", h)
}
