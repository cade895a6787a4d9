package auth

import (
	"strings"

	"github.com/spec-kit/ticketbot/internal/domain"
)

// Action is a mutating operation that can be offered on a ticket.
type Action string

const (
	ActionClaim    Action = "claim"
	ActionReassign Action = "reassign"
	ActionResolve  Action = "resolve"
	ActionClose    Action = "close"
	ActionReopen   Action = "reopen"
)

// ParseAction maps a button action id back to an Action.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionClaim, ActionReassign, ActionResolve, ActionClose, ActionReopen:
		return Action(raw), true
	}
	return "", false
}

// ActionSet is an ordered set of actions; order is the button order.
type ActionSet []Action

// Has reports whether a is a member.
func (s ActionSet) Has(a Action) bool {
	for _, candidate := range s {
		if candidate == a {
			return true
		}
	}
	return false
}

// Empty reports whether the set offers nothing.
func (s ActionSet) Empty() bool {
	return len(s) == 0
}

// Policy holds the fixed responder allow-list.
type Policy struct {
	responders map[string]struct{}
}

// NewPolicy builds a policy from responder identities. Blank entries are ignored.
func NewPolicy(responders []string) *Policy {
	set := make(map[string]struct{}, len(responders))
	for _, id := range responders {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return &Policy{responders: set}
}

// IsResponder reports whether actor may mutate ticket status.
func (p *Policy) IsResponder(actor string) bool {
	if p == nil {
		return false
	}
	_, ok := p.responders[actor]
	return ok
}

// ActionsFor returns the actions actor may be offered on t.
func (p *Policy) ActionsFor(actor string, t *domain.Ticket) ActionSet {
	return ActionsFor(p.IsResponder(actor), t.Status, t.AssignedTo)
}

// ActionsFor is total over (capability, status, assignee presence).
func ActionsFor(responder bool, status domain.TicketStatus, assignee string) ActionSet {
	if !responder {
		return ActionSet{}
	}
	unassigned := assignee == "" || assignee == domain.Unassigned
	switch status {
	case domain.TicketStatusOpen:
		if unassigned {
			return ActionSet{ActionClaim}
		}
		return ActionSet{ActionReassign, ActionResolve, ActionClose}
	case domain.TicketStatusInProgress:
		return ActionSet{ActionReassign, ActionResolve, ActionClose}
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		return ActionSet{ActionReopen}
	default:
		return ActionSet{}
	}
}
