package query

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/viewstate"
)

func ptr[T any](v T) *T { return &v }

func TestBuildScenarioD(t *testing.T) {
	s := viewstate.State{Scope: viewstate.ScopeAll, Status: ptr(domain.TicketStatusClosed), Page: 1}
	q := NewBuilder(time.UTC).Build(s, "U1")
	want := []Predicate{{Field: FieldStatus, Op: OpEq, Value: "Closed"}}
	if !reflect.DeepEqual(q.Predicates, want) {
		t.Fatalf("got %+v want %+v", q.Predicates, want)
	}
	if q.Order != CreatedDesc {
		t.Fatalf("order %q", q.Order)
	}
	if p := ClampPage(s.Page, 12, 5); p != 1 || Offset(p, 5) != 5 {
		t.Fatalf("page %d offset %d", p, Offset(p, 5))
	}
}

func TestBuildWithoutFiltersHasNoPredicates(t *testing.T) {
	q := NewBuilder(nil).Build(viewstate.State{Scope: viewstate.ScopeAll}, "U1")
	if len(q.Predicates) != 0 {
		t.Fatalf("expected no predicates, got %+v", q.Predicates)
	}
}

func TestBuildMineScopeAndDates(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	s := viewstate.State{
		Scope: viewstate.ScopeMine,
		Start: &viewstate.Date{Year: 2024, Month: time.May, Day: 1},
		End:   &viewstate.Date{Year: 2024, Month: time.May, Day: 2},
	}
	q := NewBuilder(loc).Build(s, "U9")
	if len(q.Predicates) != 3 {
		t.Fatalf("got %+v", q.Predicates)
	}
	if q.Predicates[0] != (Predicate{Field: FieldCreatedBy, Op: OpEq, Value: "U9"}) {
		t.Fatalf("scope predicate %+v", q.Predicates[0])
	}

	inside := &domain.Ticket{CreatedBy: "U9", CreatedAt: time.Date(2024, 5, 2, 23, 30, 0, 0, loc)}
	before := &domain.Ticket{CreatedBy: "U9", CreatedAt: time.Date(2024, 5, 1, 4, 59, 0, 0, time.UTC)}
	after := &domain.Ticket{CreatedBy: "U9", CreatedAt: time.Date(2024, 5, 3, 5, 0, 0, 0, time.UTC)}
	other := &domain.Ticket{CreatedBy: "U1", CreatedAt: inside.CreatedAt}
	if !q.Matches(inside) {
		t.Fatal("ticket late on the end day must match")
	}
	if q.Matches(before) || q.Matches(after) || q.Matches(other) {
		t.Fatal("out of range or foreign ticket matched")
	}
}

func TestAndCompositionLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	campaigns := []string{"Camp Lejeune", "Hair Relaxer", "Depo-Provera"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tickets := make([]*domain.Ticket, 200)
	for i := range tickets {
		tickets[i] = &domain.Ticket{
			ID:        int64(i + 1),
			Status:    domain.TicketStatuses[rng.Intn(len(domain.TicketStatuses))],
			Priority:  domain.TicketPriorities[rng.Intn(len(domain.TicketPriorities))],
			Campaign:  campaigns[rng.Intn(len(campaigns))],
			CreatedAt: base.Add(time.Duration(rng.Intn(60*24)) * time.Hour),
		}
	}

	b := NewBuilder(time.UTC)
	full := viewstate.State{
		Status:   ptr(domain.TicketStatusOpen),
		Priority: ptr(domain.TicketPriorityHigh),
		Campaign: ptr("Hair Relaxer"),
		Start:    &viewstate.Date{Year: 2024, Month: time.January, Day: 10},
		End:      &viewstate.Date{Year: 2024, Month: time.February, Day: 10},
	}
	singles := []viewstate.State{
		{Status: full.Status},
		{Priority: full.Priority},
		{Campaign: full.Campaign},
		{Start: full.Start},
		{End: full.End},
	}

	for mask := 0; mask < 1<<len(singles); mask++ {
		var combined viewstate.State
		var parts []Query
		for i, single := range singles {
			if mask&(1<<i) == 0 {
				continue
			}
			parts = append(parts, b.Build(single, ""))
			switch i {
			case 0:
				combined.Status = single.Status
			case 1:
				combined.Priority = single.Priority
			case 2:
				combined.Campaign = single.Campaign
			case 3:
				combined.Start = single.Start
			case 4:
				combined.End = single.End
			}
		}
		q := b.Build(combined, "")
		for _, tk := range tickets {
			intersection := true
			for _, part := range parts {
				intersection = intersection && part.Matches(tk)
			}
			if q.Matches(tk) != intersection {
				t.Fatalf("mask %05b ticket %d: composed %v intersection %v", mask, tk.ID, q.Matches(tk), intersection)
			}
		}
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, total, size, want int
	}{
		{0, 0, 5, 0},
		{3, 0, 5, 0},
		{-1, 12, 5, 0},
		{1, 12, 5, 1},
		{2, 12, 5, 2},
		{9, 12, 5, 2},
		{1, 10, 5, 1},
		{2, 10, 5, 1},
		{4, 5, 5, 0},
	}
	for _, tc := range tests {
		if got := ClampPage(tc.page, tc.total, tc.size); got != tc.want {
			t.Fatalf("ClampPage(%d, %d, %d) = %d want %d", tc.page, tc.total, tc.size, got, tc.want)
		}
	}
	if PageCount(12, 5) != 3 || PageCount(0, 5) != 1 || PageCount(10, 5) != 2 {
		t.Fatal("unexpected page count")
	}
}

func TestStaleAndOverdue(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-100 * time.Hour)
	recent := now.Add(-time.Hour)
	ancient := now.Add(-200 * time.Hour)

	stale := Stale(now, 72*time.Hour)
	overdue := Overdue(now, 168*time.Hour)

	tests := []struct {
		name    string
		ticket  domain.Ticket
		stale   bool
		overdue bool
	}{
		{"open untouched", domain.Ticket{Status: domain.TicketStatusOpen, AssignedTo: domain.Unassigned, CreatedAt: old, UpdatedAt: old}, true, false},
		{"in progress recent", domain.Ticket{Status: domain.TicketStatusInProgress, AssignedTo: "U1", CreatedAt: ancient, UpdatedAt: recent}, false, true},
		{"in progress forgotten", domain.Ticket{Status: domain.TicketStatusInProgress, AssignedTo: "U1", CreatedAt: ancient, UpdatedAt: ancient}, true, true},
		{"open unassigned ancient", domain.Ticket{Status: domain.TicketStatusOpen, AssignedTo: domain.Unassigned, CreatedAt: ancient, UpdatedAt: ancient}, true, false},
		{"closed", domain.Ticket{Status: domain.TicketStatusClosed, AssignedTo: "U1", CreatedAt: ancient, UpdatedAt: ancient}, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stale.Matches(&tc.ticket); got != tc.stale {
				t.Fatalf("stale %v want %v", got, tc.stale)
			}
			if got := overdue.Matches(&tc.ticket); got != tc.overdue {
				t.Fatalf("overdue %v want %v", got, tc.overdue)
			}
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tickets := []*domain.Ticket{
		{ID: 1, CreatedAt: base},
		{ID: 3, CreatedAt: base.Add(time.Hour)},
		{ID: 2, CreatedAt: base},
	}
	Query{Order: CreatedDesc}.Sort(tickets)
	if tickets[0].ID != 3 || tickets[1].ID != 2 || tickets[2].ID != 1 {
		t.Fatalf("got %d %d %d", tickets[0].ID, tickets[1].ID, tickets[2].ID)
	}
	Query{Order: CreatedAsc}.Sort(tickets)
	if tickets[0].ID != 1 || tickets[2].ID != 3 {
		t.Fatalf("got %d %d %d", tickets[0].ID, tickets[1].ID, tickets[2].ID)
	}
}
