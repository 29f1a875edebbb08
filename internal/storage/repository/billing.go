package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// UpsertSubscriptionRecord сохраняет подзапись подписки пользователя.
func (s *Storage) UpsertSubscriptionRecord(ctx context.Context, rec models.SubscriptionRecord) error {
	const op = "storage.UpsertSubscriptionRecord"

	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO user_subscriptions (id, user_uid, status, items, updated_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (id) DO UPDATE
			  SET user_uid = EXCLUDED.user_uid, status = EXCLUDED.status,
			      items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`
	if _, err := s.DB.ExecContext(ctx, query, rec.ID, rec.UserUID, rec.Status, string(items), rec.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteSubscriptionRecord удаляет подзапись подписки; отсутствие записи не ошибка.
func (s *Storage) DeleteSubscriptionRecord(ctx context.Context, id string) error {
	const op = "storage.DeleteSubscriptionRecord"

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM user_subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriptionRecord возвращает текущую подзапись подписки; models.ErrNotFound, если её нет.
func (s *Storage) GetSubscriptionRecord(ctx context.Context, id string) (*models.SubscriptionRecord, error) {
	const op = "storage.GetSubscriptionRecord"

	var (
		rec   models.SubscriptionRecord
		items []byte
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_uid, status, items, updated_at FROM user_subscriptions WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserUID, &rec.Status, &items, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rec, nil
}

// UpsertPaymentRecord сохраняет подзапись разового платежа.
func (s *Storage) UpsertPaymentRecord(ctx context.Context, rec models.PaymentRecord) error {
	const op = "storage.UpsertPaymentRecord"

	query := `INSERT INTO user_payments (id, user_uid, status, amount, currency, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (id) DO UPDATE
			  SET status = EXCLUDED.status, amount = EXCLUDED.amount, currency = EXCLUDED.currency`
	if _, err := s.DB.ExecContext(ctx, query,
		rec.ID, rec.UserUID, rec.Status, rec.Amount, rec.Currency, rec.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListActiveSubscriptionRecords возвращает все подписки в статусе active.
func (s *Storage) ListActiveSubscriptionRecords(ctx context.Context) ([]*models.SubscriptionRecord, error) {
	const op = "storage.ListActiveSubscriptionRecords"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, status, items, updated_at FROM user_subscriptions WHERE status = 'active' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionRecord
	for rows.Next() {
		var (
			rec   models.SubscriptionRecord
			items []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserUID, &rec.Status, &items, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(items, &rec.Items); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
