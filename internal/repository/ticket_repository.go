package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/query"
)

const ticketColumns = `ticket_id, created_by, campaign, issue_type, priority, status, assigned_to,
               details, salesforce_link, file_url, created_at, updated_at`

var columnFor = map[query.Field]string{
	query.FieldStatus:    "status",
	query.FieldPriority:  "priority",
	query.FieldCampaign:  "campaign",
	query.FieldCreatedBy: "created_by",
	query.FieldAssignee:  "assigned_to",
	query.FieldCreatedAt: "created_at",
	query.FieldUpdatedAt: "updated_at",
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the pgx backed store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	const stmt = `
        INSERT INTO tickets (created_by, campaign, issue_type, priority, status, assigned_to, details,
                             salesforce_link, file_url, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING ticket_id`
	return s.pool.QueryRow(ctx, stmt,
		ticket.CreatedBy,
		ticket.Campaign,
		ticket.IssueType,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.Details,
		ticket.ExternalLink,
		ticket.Attachment,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (s *postgresStore) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return getTicket(ctx, s.pool, id, false)
}

func (s *postgresStore) ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	return listComments(ctx, s.pool, ticketID)
}

func (s *postgresStore) QueryPage(ctx context.Context, q query.Query, page, size int) (TicketPage, error) {
	result := TicketPage{PageSize: size}
	where, args := whereClause(q.Predicates)
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

	err := pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM tickets"+where, args...).Scan(&result.Total); err != nil {
			return err
		}
		result.Page = query.ClampPage(page, result.Total, size)
		if result.Total == 0 {
			return nil
		}
		stmt := fmt.Sprintf(`SELECT %s FROM tickets%s %s LIMIT %d OFFSET %d`,
			ticketColumns, where, orderBy(q.Order), size, query.Offset(result.Page, size))
		rows, err := tx.Query(ctx, stmt, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		result.Tickets, err = scanTickets(rows)
		return err
	})
	if err != nil {
		return TicketPage{}, err
	}
	return result, nil
}

func (s *postgresStore) ListTickets(ctx context.Context, q query.Query, limit int) ([]domain.Ticket, error) {
	where, args := whereClause(q.Predicates)
	stmt := fmt.Sprintf(`SELECT %s FROM tickets%s %s`, ticketColumns, where, orderBy(q.Order))
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *postgresStore) Summary(ctx context.Context) (domain.Summary, error) {
	const stmt = `
        SELECT status,
               COUNT(*),
               COUNT(*) FILTER (WHERE priority = 'High' AND status IN ('Open', 'In Progress')),
               COUNT(*) FILTER (WHERE assigned_to = 'Unassigned' AND status IN ('Open', 'In Progress'))
        FROM tickets GROUP BY status`
	summary := domain.Summary{ByStatus: map[domain.TicketStatus]int{}}
	rows, err := s.pool.Query(ctx, stmt)
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status                     domain.TicketStatus
			count, high, unassignedCnt int
		)
		if err := rows.Scan(&status, &count, &high, &unassignedCnt); err != nil {
			return summary, err
		}
		summary.ByStatus[status] = count
		summary.Total += count
		summary.HighPriority += high
		summary.Unassigned += unassignedCnt
	}
	return summary, rows.Err()
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &postgresTx{q: tx})
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type postgresTx struct {
	q querier
}

func (t *postgresTx) GetTicketForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return getTicket(ctx, t.q, id, true)
}

func (t *postgresTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	const stmt = `
        UPDATE tickets SET status=$1, assigned_to=$2, updated_at=$3
        WHERE ticket_id=$4`
	cmd, err := t.q.Exec(ctx, stmt, ticket.Status, ticket.AssignedTo, ticket.UpdatedAt, ticket.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) InsertComment(ctx context.Context, comment *domain.Comment) error {
	const stmt = `
        INSERT INTO comments (ticket_id, user_id, comment_text, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING comment_id`
	return t.q.QueryRow(ctx, stmt, comment.TicketID, comment.AuthorID, comment.Text, comment.CreatedAt).Scan(&comment.ID)
}

func (t *postgresTx) ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	return listComments(ctx, t.q, ticketID)
}

func getTicket(ctx context.Context, q querier, id int64, lock bool) (*domain.Ticket, error) {
	stmt := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	if lock {
		stmt += ` FOR UPDATE`
	}
	var ticket domain.Ticket
	if err := scanTicket(q.QueryRow(ctx, stmt, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func listComments(ctx context.Context, q querier, ticketID int64) ([]domain.Comment, error) {
	const stmt = `
        SELECT comment_id, ticket_id, user_id, comment_text, created_at
        FROM comments WHERE ticket_id=$1 ORDER BY created_at ASC, comment_id ASC`
	rows, err := q.Query(ctx, stmt, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// whereClause renders predicates as " WHERE a AND b" with $n placeholders.
// An empty predicate list renders nothing.
func whereClause(predicates []query.Predicate) (string, []any) {
	if len(predicates) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(predicates))
	args := []any{}
	for _, p := range predicates {
		column, ok := columnFor[p.Field]
		if !ok {
			continue
		}
		if p.Op == query.OpIn {
			values, _ := p.Value.([]string)
			if len(values) == 0 {
				clauses = append(clauses, "FALSE")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				args = append(args, v)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
			continue
		}
		args = append(args, p.Value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", column, p.Op, len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func orderBy(order query.Order) string {
	if order == query.CreatedAsc {
		return "ORDER BY created_at ASC, ticket_id ASC"
	}
	return "ORDER BY created_at DESC, ticket_id DESC"
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.CreatedBy,
		&ticket.Campaign,
		&ticket.IssueType,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.Details,
		&ticket.ExternalLink,
		&ticket.Attachment,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
