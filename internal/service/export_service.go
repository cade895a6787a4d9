package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/query"
	"github.com/spec-kit/ticketbot/internal/repository"
	"github.com/spec-kit/ticketbot/internal/viewstate"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// ExportColumns is the CSV header, in column order.
var ExportColumns = []string{
	"id", "creator", "campaign", "issueType", "priority", "status", "assignee",
	"details", "externalLink", "attachment", "createdAt", "updatedAt",
}

// ExportService writes every ticket matching a browser state to CSV and
// uploads it to the requester.
type ExportService struct {
	store   repository.Store
	policy  *auth.Policy
	builder *query.Builder
	chat    chat.Client
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

// ExportDependencies bundles collaborators for exports.
type ExportDependencies struct {
	Store   repository.Store
	Policy  *auth.Policy
	Builder *query.Builder
	Chat    chat.Client
	Limit   int
	Logger  *zap.Logger
	Clock   func() time.Time
}

// ExportResult describes a finished upload. Truncated is set when more tickets
// matched than the export limit allows.
type ExportResult struct {
	Filename  string
	Rows      int
	Truncated bool
}

// NewExportService constructs the service.
func NewExportService(deps ExportDependencies) *ExportService {
	s := &ExportService{
		store:   deps.Store,
		policy:  deps.Policy,
		builder: deps.Builder,
		chat:    deps.Chat,
		limit:   deps.Limit,
		logger:  deps.Logger,
		now:     deps.Clock,
	}
	if s.builder == nil {
		s.builder = query.NewBuilder(time.UTC)
	}
	if s.limit <= 0 {
		s.limit = 5000
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Export runs the state's query without pagination and uploads the CSV to the
// actor's direct messages.
func (s *ExportService) Export(ctx context.Context, actor string, state viewstate.State) (ExportResult, error) {
	if !s.policy.IsResponder(actor) {
		return ExportResult{}, apperrors.NewUnauthorized("only the support team can export tickets")
	}
	tickets, err := s.store.ListTickets(ctx, s.builder.Build(state, actor), s.limit+1)
	if err != nil {
		return ExportResult{}, apperrors.NewUpstream("the ticket database", err)
	}
	truncated := len(tickets) > s.limit
	if truncated {
		tickets = tickets[:s.limit]
	}
	content, err := WriteCSV(tickets)
	if err != nil {
		return ExportResult{}, apperrors.NewInternalError(err)
	}

	now := s.now()
	filename := fmt.Sprintf("tickets_export_%s_%s.csv", now.UTC().Format("20060102T150405"), uuid.NewString()[:8])
	file := chat.File{
		UserID:   actor,
		Filename: filename,
		Title:    fmt.Sprintf("Ticket export (%d tickets)", len(tickets)),
		Content:  content,
	}
	if err := s.chat.UploadFile(ctx, file); err != nil {
		return ExportResult{}, err
	}
	s.logger.Info("tickets exported",
		zap.String("actor", actor),
		zap.String("filename", filename),
		zap.Int("rows", len(tickets)),
		zap.Bool("truncated", truncated))
	return ExportResult{Filename: filename, Rows: len(tickets), Truncated: truncated}, nil
}

// WriteCSV renders tickets under ExportColumns. Absent optional fields are
// empty cells; timestamps are RFC 3339 in UTC.
func WriteCSV(tickets []domain.Ticket) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return "", err
	}
	for _, t := range tickets {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.CreatedBy,
			t.Campaign,
			t.IssueType,
			string(t.Priority),
			string(t.Status),
			t.AssignedTo,
			t.Details,
			deref(t.ExternalLink),
			deref(t.Attachment),
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
