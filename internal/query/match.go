package query

import (
	"sort"
	"time"

	"github.com/spec-kit/ticketbot/internal/domain"
)

// Matches evaluates q against t in memory.
func (q Query) Matches(t *domain.Ticket) bool {
	for _, p := range q.Predicates {
		if !p.Matches(t) {
			return false
		}
	}
	return true
}

// Matches evaluates one predicate against t.
func (p Predicate) Matches(t *domain.Ticket) bool {
	switch p.Field {
	case FieldCreatedAt:
		return compareTime(t.CreatedAt, p.Op, p.Value)
	case FieldUpdatedAt:
		return compareTime(t.UpdatedAt, p.Op, p.Value)
	}

	var actual string
	switch p.Field {
	case FieldStatus:
		actual = string(t.Status)
	case FieldPriority:
		actual = string(t.Priority)
	case FieldCampaign:
		actual = t.Campaign
	case FieldCreatedBy:
		actual = t.CreatedBy
	case FieldAssignee:
		actual = t.AssignedTo
	default:
		return false
	}

	switch p.Op {
	case OpEq:
		v, ok := p.Value.(string)
		return ok && actual == v
	case OpNe:
		v, ok := p.Value.(string)
		return ok && actual != v
	case OpIn:
		values, ok := p.Value.([]string)
		if !ok {
			return false
		}
		for _, v := range values {
			if actual == v {
				return true
			}
		}
	}
	return false
}

func compareTime(actual time.Time, op Op, value any) bool {
	bound, ok := value.(time.Time)
	if !ok {
		return false
	}
	switch op {
	case OpGte:
		return !actual.Before(bound)
	case OpLte:
		return !actual.After(bound)
	case OpLt:
		return actual.Before(bound)
	case OpEq:
		return actual.Equal(bound)
	}
	return false
}

// Sort orders tickets per q.Order, newest first by default. Ties break on id.
func (q Query) Sort(tickets []*domain.Ticket) {
	asc := q.Order == CreatedAsc
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}
