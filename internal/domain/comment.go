package domain

import "time"

// Comment is an append-only note on a ticket, written by claim and reassign.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  string
	Text      string
	CreatedAt time.Time
}
