// Package inquiry implements inquiry and chat log persistence using PostgreSQL.
// Messages live in their own table keyed by (inquiry_id, seq) so an append
// can never overwrite another.
package inquiry

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/inquiry-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

const (
	tableInquiries = "inquiries"
	tableMessages  = "inquiry_messages"

	messagesPKey = "inquiry_messages_pkey"
)

var inquiryColumns = []string{
	"id", "initiator_id", "counterpart_id", "subject_kind", "subject_id",
	"initial_message", "approval_status", "status", "created_at", "updated_at",
}

var messageColumns = []string{"id", "inquiry_id", "seq", "sender_id", "body", "sent_at"}

// logColumns are the message columns joined onto an inquiry row.
var logColumns = []string{"m.id AS message_id", "m.seq", "m.sender_id", "m.body", "m.sent_at"}

// Repo provides inquiry persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new inquiry repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns an inquiry with its full chat log in seq order, read in a
// single statement so the row and the log come from one snapshot.
// Returns domain.ErrNotFound if the inquiry does not exist.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	cols := make([]string, 0, len(inquiryColumns)+len(logColumns))
	for _, c := range inquiryColumns {
		cols = append(cols, "i."+c)
	}
	cols = append(cols, logColumns...)

	query, args, err := postgres.Builder.
		Select(cols...).
		From(tableInquiries+" i").
		LeftJoin(tableMessages+" m ON m.inquiry_id = i.id").
		Where(sq.Eq{"i.id": id}).
		OrderBy("m.seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get inquiry: %w", err)
	}

	var rows []inquiryLogRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, postgres.MapError(err, "inquiry", id)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("inquiry %s: %w", id, domain.ErrNotFound)
	}

	inq := rows[0].inquiryRow.toDomain()
	for _, row := range rows {
		if msg, ok := row.message(); ok {
			inq.ChatLog = append(inq.ChatLog, msg)
		}
	}
	return &inq, nil
}

// ListMessages returns the authoritative chat log of an inquiry.
func (r *Repo) ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]domain.ChatMessage, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := postgres.Builder.
		Select(messageColumns...).
		From(tableMessages).
		Where(sq.Eq{"inquiry_id": inquiryID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list messages: %w", err)
	}

	var rows []messageRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, postgres.MapError(err, "inquiry_messages", inquiryID)
	}

	log := make([]domain.ChatMessage, len(rows))
	for i, row := range rows {
		log[i] = row.toDomain()
	}
	return log, nil
}

// ListByParticipant returns summaries of inquiries where userID plays role,
// newest activity first, and the total number of such inquiries.
func (r *Repo) ListByParticipant(ctx context.Context, userID uuid.UUID, role domain.ParticipantRole, limit, offset int) ([]domain.InquirySummary, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	col, err := participantColumn(role)
	if err != nil {
		return nil, 0, err
	}

	countSQL, countArgs, err := postgres.Builder.
		Select("count(*)").
		From(tableInquiries).
		Where(sq.Eq{col: userID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count inquiries: %w", err)
	}

	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inquiries: %w", err)
	}
	if total == 0 {
		return []domain.InquirySummary{}, 0, nil
	}

	cols := make([]string, 0, len(inquiryColumns)+2)
	for _, c := range inquiryColumns {
		cols = append(cols, "i."+c)
	}
	cols = append(cols, "count(m.seq) AS message_count", "max(m.sent_at) AS last_message_at")

	listSQL, listArgs, err := postgres.Builder.
		Select(cols...).
		From(tableInquiries+" i").
		LeftJoin(tableMessages+" m ON m.inquiry_id = i.id").
		Where(sq.Eq{"i." + col: userID}).
		GroupBy("i.id").
		OrderBy("i.updated_at DESC", "i.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list inquiries: %w", err)
	}

	var rows []summaryRow
	if err := pgxscan.Select(ctx, q, &rows, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list inquiries: %w", err)
	}

	out := make([]domain.InquirySummary, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, total, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new inquiry. The chat log is not written.
func (r *Repo) Create(ctx context.Context, inq *domain.Inquiry) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := postgres.Builder.
		Insert(tableInquiries).
		Columns(inquiryColumns...).
		Values(
			inq.ID, inq.InitiatorID, inq.CounterpartID, string(inq.Subject.Kind), inq.Subject.ID,
			inq.InitialMessage, string(inq.ApprovalStatus), string(inq.Status), inq.CreatedAt, inq.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert inquiry: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "inquiry", inq.ID)
	}
	return nil
}

// AppendMessage inserts msg at msg.Seq. A taken seq means another writer
// appended first and yields domain.ErrConcurrentModification.
func (r *Repo) AppendMessage(ctx context.Context, msg domain.ChatMessage) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := postgres.Builder.
		Insert(tableMessages).
		Columns(messageColumns...).
		Values(msg.ID, msg.InquiryID, msg.Seq, msg.SenderID, msg.Body, msg.SentAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert message: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		if postgres.IsUniqueViolation(err, messagesPKey) {
			return fmt.Errorf("inquiry %s seq %d: %w", msg.InquiryID, msg.Seq, domain.ErrConcurrentModification)
		}
		return postgres.MapError(err, "inquiry_message", msg.ID)
	}
	return nil
}

// MarkReplied sets status to replied and bumps updated_at.
func (r *Repo) MarkReplied(ctx context.Context, id uuid.UUID, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := postgres.Builder.
		Update(tableInquiries).
		Set("status", string(domain.InquiryStatusReplied)).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark replied: %w", err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "inquiry", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inquiry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetApprovalStatus moves approval_status from `from` to `to` only if the
// row still holds `from`. A lost race yields domain.ErrConcurrentModification.
func (r *Repo) SetApprovalStatus(ctx context.Context, id uuid.UUID, from, to domain.ApprovalStatus, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := postgres.Builder.
		Update(tableInquiries).
		Set("approval_status", string(to)).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "approval_status": string(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set approval: %w", err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "inquiry", id)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("inquiry %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("inquiry %s: %w", id, domain.ErrConcurrentModification)
}

func (r *Repo) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var ok bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM inquiries WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, postgres.MapError(err, "inquiry", id)
	}
	return ok, nil
}

func participantColumn(role domain.ParticipantRole) (string, error) {
	switch role {
	case domain.RoleInitiator:
		return "initiator_id", nil
	case domain.RoleCounterpart:
		return "counterpart_id", nil
	}
	return "", domain.NewValidationError("role", fmt.Sprintf("unknown participant role %q", role))
}
