package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Unassigned is the assignee sentinel of a ticket nobody has claimed yet.
const Unassigned = "Unassigned"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           int64
	CreatedBy    string
	Campaign     string
	IssueType    string
	Priority     TicketPriority
	Status       TicketStatus
	AssignedTo   string
	Details      string
	ExternalLink *string
	Attachment   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssigned reports whether a concrete assignee owns the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedTo != "" && t.AssignedTo != Unassigned
}

// Summary aggregates ticket counts for the summary command.
type Summary struct {
	Total        int
	ByStatus     map[TicketStatus]int
	HighPriority int
	Unassigned   int
}
