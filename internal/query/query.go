// Package query turns decoded browser state into store predicates.
package query

import (
	"time"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/viewstate"
)

// Field names a filterable ticket column.
type Field string

const (
	FieldStatus    Field = "status"
	FieldPriority  Field = "priority"
	FieldCampaign  Field = "campaign"
	FieldCreatedBy Field = "created_by"
	FieldAssignee  Field = "assigned_to"
	FieldCreatedAt Field = "created_at"
	FieldUpdatedAt Field = "updated_at"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpIn  Op = "IN"
	OpGte Op = ">="
	OpLte Op = "<="
	OpLt  Op = "<"
)

// Predicate is one AND-composed condition. Value is a string, a []string for
// OpIn, or a time.Time for timestamp fields.
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

// Order is a result ordering.
type Order string

const (
	CreatedDesc Order = "created_desc"
	CreatedAsc  Order = "created_asc"
)

// Query is a conjunction of predicates plus ordering.
type Query struct {
	Predicates []Predicate
	Order      Order
}

// Builder builds queries in a fixed time zone.
type Builder struct {
	Location *time.Location
}

// NewBuilder returns a builder for loc; nil means UTC.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{Location: loc}
}

// Build composes one predicate per present filter. actor scopes a "mine"
// browser to the actor's own tickets.
func (b *Builder) Build(s viewstate.State, actor string) Query {
	q := Query{Order: CreatedDesc}
	if s.Scope == viewstate.ScopeMine {
		q.Predicates = append(q.Predicates, Predicate{Field: FieldCreatedBy, Op: OpEq, Value: actor})
	}
	if s.Status != nil {
		q.Predicates = append(q.Predicates, Predicate{Field: FieldStatus, Op: OpEq, Value: string(*s.Status)})
	}
	if s.Priority != nil {
		q.Predicates = append(q.Predicates, Predicate{Field: FieldPriority, Op: OpEq, Value: string(*s.Priority)})
	}
	if s.Campaign != nil {
		q.Predicates = append(q.Predicates, Predicate{Field: FieldCampaign, Op: OpEq, Value: *s.Campaign})
	}
	if s.Start != nil {
		q.Predicates = append(q.Predicates, Predicate{Field: FieldCreatedAt, Op: OpGte, Value: s.Start.StartOfDay(b.location())})
	}
	if s.End != nil {
		q.Predicates = append(q.Predicates, Predicate{Field: FieldCreatedAt, Op: OpLte, Value: s.End.EndOfDay(b.location())})
	}
	return q
}

func (b *Builder) location() *time.Location {
	if b == nil || b.Location == nil {
		return time.UTC
	}
	return b.Location
}

var activeStatuses = []string{string(domain.TicketStatusOpen), string(domain.TicketStatusInProgress)}

// Stale matches active tickets nobody has touched for age.
func Stale(now time.Time, age time.Duration) Query {
	return Query{
		Order: CreatedAsc,
		Predicates: []Predicate{
			{Field: FieldStatus, Op: OpIn, Value: activeStatuses},
			{Field: FieldUpdatedAt, Op: OpLt, Value: now.Add(-age)},
		},
	}
}

// Overdue matches active assigned tickets created more than age ago.
func Overdue(now time.Time, age time.Duration) Query {
	return Query{
		Order: CreatedAsc,
		Predicates: []Predicate{
			{Field: FieldStatus, Op: OpIn, Value: activeStatuses},
			{Field: FieldAssignee, Op: OpNe, Value: domain.Unassigned},
			{Field: FieldCreatedAt, Op: OpLt, Value: now.Add(-age)},
		},
	}
}

// ClampPage bounds page to [0, ceil(total/size)-1]; an empty result is page 0.
func ClampPage(page, total, size int) int {
	if page < 0 || total <= 0 || size <= 0 {
		return 0
	}
	last := PageCount(total, size) - 1
	if page > last {
		return last
	}
	return page
}

// PageCount is ceil(total/size), at least 1.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Offset returns the row offset of a clamped page.
func Offset(page, size int) int {
	return page * size
}
