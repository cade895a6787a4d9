package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/query"
)

// MemoryStore keeps tickets in process. It backs tests and local runs without
// POSTGRES_DSN. Transactions hold the store lock, which serializes them the way
// row locks serialize writers in Postgres.
type MemoryStore struct {
	mu            sync.Mutex
	tickets       map[int64]domain.Ticket
	comments      map[int64][]domain.Comment
	nextTicketID  int64
	nextCommentID int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  map[int64]domain.Ticket{},
		comments: map[int64][]domain.Comment{},
	}
}

func (s *MemoryStore) InsertTicket(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTicketID++
	ticket.ID = s.nextTicketID
	s.tickets[ticket.ID] = *ticket
	return nil
}

func (s *MemoryStore) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (s *MemoryStore) ListComments(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Comment(nil), s.comments[ticketID]...), nil
}

func (s *MemoryStore) QueryPage(_ context.Context, q query.Query, page, size int) (TicketPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := s.match(q)
	result := TicketPage{Total: len(matches), PageSize: size}
	result.Page = query.ClampPage(page, result.Total, size)
	if result.Total == 0 {
		return result, nil
	}
	start := query.Offset(result.Page, size)
	end := start + size
	if end > len(matches) {
		end = len(matches)
	}
	for _, t := range matches[start:end] {
		result.Tickets = append(result.Tickets, *t)
	}
	return result, nil
}

func (s *MemoryStore) ListTickets(_ context.Context, q query.Query, limit int) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := s.match(q)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	result := make([]domain.Ticket, 0, len(matches))
	for _, t := range matches {
		result = append(result, *t)
	}
	return result, nil
}

func (s *MemoryStore) Summary(_ context.Context) (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := domain.Summary{ByStatus: map[domain.TicketStatus]int{}}
	for _, t := range s.tickets {
		summary.Total++
		summary.ByStatus[t.Status]++
		active := t.Status == domain.TicketStatusOpen || t.Status == domain.TicketStatusInProgress
		if active && t.Priority == domain.TicketPriorityHigh {
			summary.HighPriority++
		}
		if active && !t.IsAssigned() {
			summary.Unassigned++
		}
	}
	return summary, nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memoryTx{store: s, tickets: map[int64]domain.Ticket{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, t := range tx.tickets {
		s.tickets[id] = t
	}
	for _, c := range tx.comments {
		s.comments[c.TicketID] = append(s.comments[c.TicketID], c)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// match must be called with s.mu held.
func (s *MemoryStore) match(q query.Query) []*domain.Ticket {
	var matches []*domain.Ticket
	for id := range s.tickets {
		t := s.tickets[id]
		if q.Matches(&t) {
			matches = append(matches, &t)
		}
	}
	q.Sort(matches)
	return matches
}

// memoryTx stages writes until WithinTx commits them.
type memoryTx struct {
	store    *MemoryStore
	tickets  map[int64]domain.Ticket
	comments []domain.Comment
}

func (t *memoryTx) GetTicketForUpdate(_ context.Context, id int64) (*domain.Ticket, error) {
	if staged, ok := t.tickets[id]; ok {
		return &staged, nil
	}
	ticket, ok := t.store.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (t *memoryTx) UpdateTicket(_ context.Context, ticket *domain.Ticket) error {
	current, ok := t.store.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	current.Status = ticket.Status
	current.AssignedTo = ticket.AssignedTo
	current.UpdatedAt = ticket.UpdatedAt
	t.tickets[ticket.ID] = current
	return nil
}

func (t *memoryTx) InsertComment(_ context.Context, comment *domain.Comment) error {
	if _, ok := t.store.tickets[comment.TicketID]; !ok {
		return ErrNotFound
	}
	t.store.nextCommentID++
	comment.ID = t.store.nextCommentID
	t.comments = append(t.comments, *comment)
	return nil
}

func (t *memoryTx) ListComments(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	result := append([]domain.Comment(nil), t.store.comments[ticketID]...)
	for _, c := range t.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}
