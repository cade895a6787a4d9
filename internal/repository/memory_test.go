package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/query"
)

func seed(t *testing.T, s *MemoryStore, n int, status domain.TicketStatus) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ticket := &domain.Ticket{
			CreatedBy:  "U-sub",
			Campaign:   "Camp Lejeune",
			IssueType:  "Other",
			Priority:   domain.TicketPriorityMedium,
			Status:     status,
			AssignedTo: domain.Unassigned,
			Details:    "details",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.InsertTicket(context.Background(), ticket); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestMemoryQueryPageClampsAndOrders(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, 12, domain.TicketStatusClosed)
	seed(t, s, 3, domain.TicketStatusOpen)
	q := query.Query{Predicates: []query.Predicate{{Field: query.FieldStatus, Op: query.OpEq, Value: "Closed"}}}

	page, err := s.QueryPage(context.Background(), q, 1, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 12 || page.Page != 1 || len(page.Tickets) != 5 || page.Pages() != 3 {
		t.Fatalf("got total=%d page=%d len=%d", page.Total, page.Page, len(page.Tickets))
	}
	// newest first: closed ids are 1..12, page 1 holds the 6th to 10th newest.
	if page.Tickets[0].ID != 7 || page.Tickets[4].ID != 3 {
		t.Fatalf("unexpected ids %d..%d", page.Tickets[0].ID, page.Tickets[4].ID)
	}

	last, err := s.QueryPage(context.Background(), q, 99, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if last.Page != 2 || len(last.Tickets) != 2 {
		t.Fatalf("got page=%d len=%d", last.Page, len(last.Tickets))
	}
}

func TestMemoryWithinTxRollsBack(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, 1, domain.TicketStatusOpen)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		ticket, err := tx.GetTicketForUpdate(ctx, 1)
		if err != nil {
			return err
		}
		ticket.Status = domain.TicketStatusInProgress
		ticket.AssignedTo = "U1"
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		if err := tx.InsertComment(ctx, &domain.Comment{TicketID: 1, AuthorID: "U1", Text: "mine"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	ticket, _ := s.GetTicket(context.Background(), 1)
	comments, _ := s.ListComments(context.Background(), 1)
	if ticket.Status != domain.TicketStatusOpen || ticket.AssignedTo != domain.Unassigned || len(comments) != 0 {
		t.Fatalf("partial write leaked: %+v comments=%d", ticket, len(comments))
	}
}

func TestMemoryWithinTxCommits(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, 1, domain.TicketStatusOpen)
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		ticket, err := tx.GetTicketForUpdate(ctx, 1)
		if err != nil {
			return err
		}
		ticket.Status = domain.TicketStatusResolved
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		comment := &domain.Comment{TicketID: 1, AuthorID: "U1", Text: "done"}
		if err := tx.InsertComment(ctx, comment); err != nil {
			return err
		}
		if comment.ID == 0 {
			t.Fatal("comment id not assigned")
		}
		staged, _ := tx.ListComments(ctx, 1)
		if len(staged) != 1 {
			t.Fatalf("staged comments %d", len(staged))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	ticket, _ := s.GetTicket(context.Background(), 1)
	if ticket.Status != domain.TicketStatusResolved {
		t.Fatalf("status %q", ticket.Status)
	}
	if _, err := s.GetTicket(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySummary(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, 2, domain.TicketStatusOpen)
	seed(t, s, 1, domain.TicketStatusClosed)
	summary, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 3 || summary.ByStatus[domain.TicketStatusOpen] != 2 || summary.Unassigned != 2 {
		t.Fatalf("got %+v", summary)
	}
}

func TestWhereClause(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := whereClause(query.Overdue(now, time.Hour).Predicates)
	want := " WHERE status IN ($1,$2) AND assigned_to <> $3 AND created_at < $4"
	if where != want {
		t.Fatalf("got %q want %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("args %v", args)
	}
	if where, args := whereClause(nil); where != "" || args != nil {
		t.Fatalf("empty predicates rendered %q %v", where, args)
	}
}
