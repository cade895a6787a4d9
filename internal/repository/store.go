package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/query"
)

// ErrNotFound is returned when a ticket id does not exist.
var ErrNotFound = errors.New("ticket not found")

// TicketPage is one clamped page of a query together with its total.
type TicketPage struct {
	Tickets  []domain.Ticket
	Total    int
	Page     int
	PageSize int
}

// Pages returns the page count, at least 1.
func (p TicketPage) Pages() int {
	return query.PageCount(p.Total, p.PageSize)
}

// Store owns ticket and comment persistence. It applies no policy.
type Store interface {
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error)
	// QueryPage counts, clamps page and selects the page from one snapshot.
	QueryPage(ctx context.Context, q query.Query, page, size int) (TicketPage, error)
	// ListTickets returns every match, up to limit when limit > 0.
	ListTickets(ctx context.Context, q query.Query, limit int) ([]domain.Ticket, error)
	Summary(ctx context.Context) (domain.Summary, error)
	// WithinTx runs fn in one transaction; fn's error aborts every write.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the transactional view used by state transitions.
type Tx interface {
	// GetTicketForUpdate reads and locks the ticket row until commit.
	GetTicketForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	InsertComment(ctx context.Context, comment *domain.Comment) error
	ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error)
}
