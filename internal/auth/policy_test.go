package auth

import (
	"reflect"
	"testing"

	"github.com/spec-kit/ticketbot/internal/domain"
)

func TestActionsForIsTotal(t *testing.T) {
	working := ActionSet{ActionReassign, ActionResolve, ActionClose}
	tests := []struct {
		status    domain.TicketStatus
		assignee  string
		responder ActionSet
	}{
		{domain.TicketStatusOpen, domain.Unassigned, ActionSet{ActionClaim}},
		{domain.TicketStatusOpen, "U-agent", working},
		{domain.TicketStatusInProgress, domain.Unassigned, working},
		{domain.TicketStatusInProgress, "U-agent", working},
		{domain.TicketStatusResolved, domain.Unassigned, ActionSet{ActionReopen}},
		{domain.TicketStatusResolved, "U-agent", ActionSet{ActionReopen}},
		{domain.TicketStatusClosed, domain.Unassigned, ActionSet{ActionReopen}},
		{domain.TicketStatusClosed, "U-agent", ActionSet{ActionReopen}},
	}
	if len(tests) != len(domain.TicketStatuses)*2 {
		t.Fatalf("table does not cover every status/assignee pair")
	}
	for _, tc := range tests {
		t.Run(string(tc.status)+"/"+tc.assignee, func(t *testing.T) {
			if got := ActionsFor(true, tc.status, tc.assignee); !reflect.DeepEqual(got, tc.responder) {
				t.Fatalf("responder: got %v want %v", got, tc.responder)
			}
			got := ActionsFor(false, tc.status, tc.assignee)
			if got == nil || !got.Empty() {
				t.Fatalf("non-responder must get an explicit empty set, got %#v", got)
			}
		})
	}
}

func TestActionsForUnknownStatus(t *testing.T) {
	if got := ActionsFor(true, domain.TicketStatus("Archived"), domain.Unassigned); !got.Empty() {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestPolicyResponders(t *testing.T) {
	p := NewPolicy([]string{"U1", " U2 ", ""})
	if !p.IsResponder("U1") || !p.IsResponder("U2") {
		t.Fatal("expected U1 and U2 to be responders")
	}
	if p.IsResponder("") || p.IsResponder("U3") {
		t.Fatal("unexpected responder")
	}
	var nilPolicy *Policy
	if nilPolicy.IsResponder("U1") {
		t.Fatal("nil policy must deny")
	}

	ticket := &domain.Ticket{Status: domain.TicketStatusOpen, AssignedTo: domain.Unassigned}
	if got := p.ActionsFor("U1", ticket); !reflect.DeepEqual(got, ActionSet{ActionClaim}) {
		t.Fatalf("got %v", got)
	}
	if got := p.ActionsFor("U3", ticket); !got.Empty() {
		t.Fatalf("got %v", got)
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction("reopen"); !ok || a != ActionReopen {
		t.Fatalf("got %v %v", a, ok)
	}
	if _, ok := ParseAction("delete"); ok {
		t.Fatal("delete is not an action")
	}
}
