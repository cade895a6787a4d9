// Package viewstate round-trips browser filter and pagination state through the
// rendered modal itself. Nothing is cached server side.
package viewstate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/domain"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// Component identifiers. Every filter dimension owns exactly one element.
const (
	FiltersBlockID = "filters"
	DatesBlockID   = "filter_dates"

	StatusActionID   = "filter_status"
	PriorityActionID = "filter_priority"
	CampaignActionID = "filter_campaign"
	StartActionID    = "filter_start"
	EndActionID      = "filter_end"

	// All is the select option meaning "no filter".
	All = "all"
)

// Scope selects whose tickets a browser lists.
type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeMine Scope = "mine"
)

// Values mirrors slack.ViewState.Values: block id -> action id -> element value.
type Values map[string]map[string]slack.BlockAction

// State is the decoded filter and page selection of a ticket browser.
type State struct {
	Scope    Scope
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Campaign *string
	Start    *Date
	End      *Date
	Page     int
}

// Encoded is what a rendered browser carries.
type Encoded struct {
	Values   Values
	Metadata string
}

type metadata struct {
	Scope Scope `json:"scope"`
	Page  int   `json:"page"`
}

// Encode writes s into view component values and private metadata.
func Encode(s State) Encoded {
	values := Values{}
	if s.Status != nil {
		values.set(FiltersBlockID, StatusActionID, selected(string(*s.Status)))
	}
	if s.Priority != nil {
		values.set(FiltersBlockID, PriorityActionID, selected(string(*s.Priority)))
	}
	if s.Campaign != nil {
		values.set(FiltersBlockID, CampaignActionID, selected(*s.Campaign))
	}
	if s.Start != nil {
		values.set(DatesBlockID, StartActionID, slack.BlockAction{ActionID: StartActionID, SelectedDate: s.Start.String()})
	}
	if s.End != nil {
		values.set(DatesBlockID, EndActionID, slack.BlockAction{ActionID: EndActionID, SelectedDate: s.End.String()})
	}

	scope := s.Scope
	if scope == "" {
		scope = ScopeAll
	}
	page := s.Page
	if page < 0 {
		page = 0
	}
	raw, _ := json.Marshal(metadata{Scope: scope, Page: page})
	return Encoded{Values: values, Metadata: string(raw)}
}

// Decode rebuilds State from the values and metadata a browser sent back.
// Absent components and the "all" option both mean no filter.
func Decode(values Values, rawMetadata string) (State, error) {
	state, problems, err := decode(values, rawMetadata)
	if err != nil {
		return State{}, err
	}
	if len(problems) > 0 {
		return State{}, problems[0]
	}
	return state, nil
}

// Salvage decodes like Decode but leaves out every filter component that
// fails to decode, so the rest of the browser state survives a rejected
// interaction. Malformed metadata is still an error.
func Salvage(values Values, rawMetadata string) (State, error) {
	state, _, err := decode(values, rawMetadata)
	return state, err
}

// decode returns metadata failures as err and component failures as problems,
// in component order. A failed component is left unset.
func decode(values Values, rawMetadata string) (State, []error, error) {
	state := State{Scope: ScopeAll}

	if strings.TrimSpace(rawMetadata) != "" {
		var md metadata
		if err := json.Unmarshal([]byte(rawMetadata), &md); err != nil {
			return State{}, nil, apperrors.NewValidationError("this view is out of date, please reopen it", map[string]any{"metadata": "malformed"})
		}
		switch md.Scope {
		case "", ScopeAll:
		case ScopeMine:
			state.Scope = ScopeMine
		default:
			return State{}, nil, apperrors.NewValidationError("this view is out of date, please reopen it", map[string]any{"scope": string(md.Scope)})
		}
		if md.Page > 0 {
			state.Page = md.Page
		}
	}

	var problems []error
	if raw, ok := values.option(FiltersBlockID, StatusActionID); ok {
		status := domain.TicketStatus(raw)
		if status.Valid() {
			state.Status = &status
		} else {
			problems = append(problems, apperrors.NewValidationError("unknown status filter", map[string]any{"status": raw}))
		}
	}
	if raw, ok := values.option(FiltersBlockID, PriorityActionID); ok {
		priority := domain.TicketPriority(raw)
		if priority.Valid() {
			state.Priority = &priority
		} else {
			problems = append(problems, apperrors.NewValidationError("unknown priority filter", map[string]any{"priority": raw}))
		}
	}
	if raw, ok := values.option(FiltersBlockID, CampaignActionID); ok {
		campaign := raw
		state.Campaign = &campaign
	}

	var err error
	if state.Start, err = values.date(DatesBlockID, StartActionID, "start"); err != nil {
		problems = append(problems, err)
	}
	if state.End, err = values.date(DatesBlockID, EndActionID, "end"); err != nil {
		problems = append(problems, err)
	}
	return state, problems, nil
}

// Merge overlays action onto values; Slack may send the triggering element's
// new value only in the action payload.
func Merge(values Values, blockID string, action slack.BlockAction) Values {
	merged := Values{}
	for block, actions := range values {
		for id, v := range actions {
			merged.set(block, id, v)
		}
	}
	merged.set(blockID, action.ActionID, action)
	return merged
}

// WithPage returns a copy of s on page.
func (s State) WithPage(page int) State {
	if page < 0 {
		page = 0
	}
	s.Page = page
	return s
}

// Filtered reports whether any filter dimension is set.
func (s State) Filtered() bool {
	return s.Status != nil || s.Priority != nil || s.Campaign != nil || s.Start != nil || s.End != nil
}

func (v Values) set(blockID, actionID string, action slack.BlockAction) {
	if v[blockID] == nil {
		v[blockID] = map[string]slack.BlockAction{}
	}
	v[blockID][actionID] = action
}

func (v Values) lookup(blockID, actionID string) (slack.BlockAction, bool) {
	block, ok := v[blockID]
	if !ok {
		return slack.BlockAction{}, false
	}
	action, ok := block[actionID]
	return action, ok
}

func (v Values) option(blockID, actionID string) (string, bool) {
	action, ok := v.lookup(blockID, actionID)
	if !ok {
		return "", false
	}
	raw := strings.TrimSpace(action.SelectedOption.Value)
	if raw == "" {
		raw = strings.TrimSpace(action.Value)
	}
	if raw == "" || strings.EqualFold(raw, All) {
		return "", false
	}
	return raw, true
}

func (v Values) date(blockID, actionID, field string) (*Date, error) {
	action, ok := v.lookup(blockID, actionID)
	if !ok {
		return nil, nil
	}
	raw := strings.TrimSpace(action.SelectedDate)
	if raw == "" {
		return nil, nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s date %q is not a valid date", field, raw), map[string]any{field: raw})
	}
	return &d, nil
}

func selected(value string) slack.BlockAction {
	return slack.BlockAction{SelectedOption: slack.OptionBlockObject{Value: value}}
}

// Date is a calendar day without a zone; the query layer picks the zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD as sent by Slack datepickers.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// StartOfDay is midnight of d in loc.
func (d Date) StartOfDay(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// EndOfDay is the last representable store instant of d in loc.
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return d.StartOfDay(loc).AddDate(0, 0, 1).Add(-time.Microsecond)
}
