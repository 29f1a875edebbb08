package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

const submissionColumns = `id, name, email, email_lower, phone, service, service_display_text,
	message, newsletter, status, sent, last_updated, replied, archived`

func scanSubmission(row scanner) (*models.ContactSubmission, error) {
	var (
		s     models.ContactSubmission
		phone sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.EmailLower, &phone, &s.Service,
		&s.ServiceDisplayText, &s.Message, &s.Newsletter, &s.Status, &s.Sent,
		&s.LastUpdated, &s.Replied, &s.Archived); err != nil {
		return nil, err
	}
	if phone.Valid {
		s.Phone = &phone.String
	}
	return &s, nil
}

// CreateSubmission сохраняет новое обращение.
func (s *Storage) CreateSubmission(ctx context.Context, sub *models.ContactSubmission) error {
	const op = "storage.CreateSubmission"

	query := `INSERT INTO contact_submissions (` + submissionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.Name, sub.Email, sub.EmailLower, sub.Phone, sub.Service,
		sub.ServiceDisplayText, sub.Message, sub.Newsletter, sub.Status, sub.Sent,
		sub.LastUpdated, sub.Replied, sub.Archived)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubmission возвращает обращение по ID.
func (s *Storage) GetSubmission(ctx context.Context, id string) (*models.ContactSubmission, error) {
	const op = "storage.GetSubmission"

	query := `SELECT ` + submissionColumns + ` FROM contact_submissions WHERE id = $1`
	sub, err := scanSubmission(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubmissions возвращает обращения по фильтру, новые первыми.
func (s *Storage) ListSubmissions(ctx context.Context, filter models.ContactFilter) ([]*models.ContactSubmission, error) {
	const op = "storage.ListSubmissions"

	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Service != "" {
		args = append(args, filter.Service)
		conds = append(conds, fmt.Sprintf("service = $%d", len(args)))
	}
	query := `SELECT ` + submissionColumns + ` FROM contact_submissions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sent DESC, id`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.ContactSubmission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CompareAndSetStatus меняет статус, только если текущий статус всё ещё равен expected.
// Возвращает false, если запись изменилась или отсутствует.
func (s *Storage) CompareAndSetStatus(ctx context.Context, id string, expected, next models.ContactStatus, now time.Time) (bool, error) {
	const op = "storage.CompareAndSetStatus"

	query := `UPDATE contact_submissions
			  SET status = $1, replied = $2, last_updated = $3
			  WHERE id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query, next, next == models.StatusReplied, now, id, expected)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// SetArchived помечает обращение архивным или возвращает из архива.
func (s *Storage) SetArchived(ctx context.Context, id string, archived bool, now time.Time) error {
	const op = "storage.SetArchived"

	query := `UPDATE contact_submissions SET archived = $1, last_updated = $2 WHERE id = $3`
	res, err := s.DB.ExecContext(ctx, query, archived, now, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// CreateReplyAndMarkReplied в одной транзакции сохраняет ответ и переводит обращение в Replied.
// Возвращает обращение в состоянии до перехода.
func (s *Storage) CreateReplyAndMarkReplied(ctx context.Context, reply *models.Reply, now time.Time) (*models.ContactSubmission, error) {
	const op = "storage.CreateReplyAndMarkReplied"

	var before *models.ContactSubmission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + submissionColumns + ` FROM contact_submissions WHERE id = $1 FOR UPDATE`
		sub, err := scanSubmission(tx.QueryRowContext(ctx, query, reply.SubmissionID))
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !models.CanTransition(sub.Status, models.StatusReplied) {
			return &models.TransitionError{From: sub.Status, To: models.StatusReplied}
		}
		before = sub

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO contact_replies (id, submission_id, content, sent_by, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			reply.ID, reply.SubmissionID, reply.Content, reply.SentBy, reply.CreatedAt); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE contact_submissions SET status = $1, replied = true, last_updated = $2 WHERE id = $3`,
			models.StatusReplied, now, reply.SubmissionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return before, nil
}

// ListReplies возвращает ответы на обращение в порядке создания.
func (s *Storage) ListReplies(ctx context.Context, submissionID string) ([]*models.Reply, error) {
	const op = "storage.ListReplies"

	query := `SELECT id, submission_id, content, sent_by, created_at
			  FROM contact_replies
			  WHERE submission_id = $1
			  ORDER BY created_at ASC, id`
	rows, err := s.DB.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Reply, 0)
	for rows.Next() {
		var r models.Reply
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.Content, &r.SentBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteSubmission удаляет все ответы, затем само обращение, в одной транзакции.
// Если ответы удалить не удалось, обращение остаётся на месте и возвращается
// *models.PartialDeleteError. Возвращает количество удалённых ответов.
func (s *Storage) DeleteSubmission(ctx context.Context, id string) (int, error) {
	const op = "storage.DeleteSubmission"

	var deletedReplies int64
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM contact_replies WHERE submission_id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: %w", op, &models.PartialDeleteError{SubmissionID: id, Err: err})
	}
	if deletedReplies, err = res.RowsAffected(); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: %w", op, &models.PartialDeleteError{SubmissionID: id, Err: err})
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM contact_submissions WHERE id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, &models.PartialDeleteError{SubmissionID: id, Err: err})
	}
	return int(deletedReplies), nil
}
