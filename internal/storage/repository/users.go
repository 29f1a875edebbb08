package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// CreateUserWithIdentity в одной транзакции создаёт учётную запись и профиль в статусе pending.
// Токен reCAPTCHA сохраняется в профиле до его проверки воркером.
func (s *Storage) CreateUserWithIdentity(ctx context.Context, identity models.Identity, user models.User, recaptchaToken string) (string, error) {
	const op = "storage.CreateUserWithIdentity"

	var uid string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO identities (email, password_hash, role) VALUES ($1, $2, $3) RETURNING uid`,
			identity.Email, identity.PasswordHash, identity.Role).Scan(&uid); err != nil {
			return err
		}

		var token *string
		if recaptchaToken != "" {
			token = &recaptchaToken
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (uid, email, display_name, payment_status, recaptcha_token, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			uid, user.Email, user.DisplayName, models.PaymentPending, token, user.CreatedAt)
		return err
	})
	if isUniqueViolation(err) {
		return "", fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUser возвращает профиль пользователя по UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT uid, email, display_name, payment_status, subscription_id, subscription_status,
			      subscription_ended_at, assigned_trainer_id, assigned_trainer_name, assigned_at,
			      last_payment_id, last_payment_amount, last_payment_date, recaptcha_score,
			      recaptcha_verified, account_flags, created_at, updated_at
			  FROM users
			  WHERE uid = $1`
	var (
		u                                                   models.User
		subID, subStatus, trainerID, trainerName, lastPayID sql.NullString
		endedAt, assignedAt, lastPayDate                    sql.NullTime
		lastPayAmount, score                                sql.NullFloat64
	)
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&u.UUID, &u.Email, &u.DisplayName,
		&u.PaymentStatus, &subID, &subStatus, &endedAt, &trainerID, &trainerName, &assignedAt,
		&lastPayID, &lastPayAmount, &lastPayDate, &score, &u.RecaptchaVerified,
		pgtype.NewMap().SQLScanner(&u.AccountFlags), &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u.SubscriptionID = nullString(subID)
	u.SubscriptionStatus = nullString(subStatus)
	u.AssignedTrainerID = nullString(trainerID)
	u.AssignedTrainerName = nullString(trainerName)
	u.LastPaymentID = nullString(lastPayID)
	u.SubscriptionEndedAt = nullTime(endedAt)
	u.AssignedAt = nullTime(assignedAt)
	u.LastPaymentDate = nullTime(lastPayDate)
	u.LastPaymentAmount = nullFloat(lastPayAmount)
	u.RecaptchaScore = nullFloat(score)
	return &u, nil
}

// UpdateSubscriptionState записывает статус оплаты, выведенный из подзаписи подписки.
func (s *Storage) UpdateSubscriptionState(ctx context.Context, userUID string, status models.PaymentStatus, subscriptionID, providerStatus string, now time.Time) error {
	const op = "storage.UpdateSubscriptionState"

	query := `UPDATE users
			  SET payment_status = $1, subscription_id = $2, subscription_status = $3, updated_at = $4
			  WHERE uid = $5`
	return s.execOne(ctx, op, query, status, subscriptionID, providerStatus, now, userUID)
}

// MarkSubscriptionCancelled переводит пользователя в cancelled после удаления подписки.
func (s *Storage) MarkSubscriptionCancelled(ctx context.Context, userUID string, now time.Time) error {
	const op = "storage.MarkSubscriptionCancelled"

	query := `UPDATE users
			  SET payment_status = $1, subscription_ended_at = $2, updated_at = $2
			  WHERE uid = $3`
	return s.execOne(ctx, op, query, models.PaymentCancelled, now, userUID)
}

// RecordSuccessfulPayment активирует пользователя после успешного разового платежа.
func (s *Storage) RecordSuccessfulPayment(ctx context.Context, userUID, paymentID string, amount float64, paidAt, now time.Time) error {
	const op = "storage.RecordSuccessfulPayment"

	query := `UPDATE users
			  SET payment_status = $1, last_payment_id = $2, last_payment_amount = $3,
			      last_payment_date = $4, updated_at = $5
			  WHERE uid = $6`
	return s.execOne(ctx, op, query, models.PaymentActive, paymentID, amount, paidAt, now, userUID)
}

// AssignTrainerIfUnset назначает тренера, только если у пользователя его ещё нет.
// Возвращает false, если тренер уже был назначен к моменту записи.
func (s *Storage) AssignTrainerIfUnset(ctx context.Context, userUID string, trainer *models.Trainer, now time.Time) (bool, error) {
	const op = "storage.AssignTrainerIfUnset"

	query := `UPDATE users
			  SET assigned_trainer_id = $1, assigned_trainer_name = $2, assigned_at = $3, updated_at = $3
			  WHERE uid = $4 AND assigned_trainer_id IS NULL`
	res, err := s.DB.ExecContext(ctx, query, trainer.ID, trainer.Name, now, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// FindStalePendingUsers находит неоплаченные регистрации, созданные строго раньше cutoff.
func (s *Storage) FindStalePendingUsers(ctx context.Context, cutoff time.Time) ([]string, error) {
	const op = "storage.FindStalePendingUsers"

	query := `SELECT uid FROM users
			  WHERE payment_status = $1 AND created_at < $2 AND last_payment_id IS NULL
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, models.PaymentPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteUsers удаляет профили одним атомарным пакетом и возвращает UID удалённых.
// Профиль, успевший перейти из pending или получить платёж, не удаляется и в ответ не попадает.
func (s *Storage) DeleteUsers(ctx context.Context, userUIDs []string) ([]string, error) {
	const op = "storage.DeleteUsers"

	deleted := make([]string, 0, len(userUIDs))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`DELETE FROM users WHERE uid = $1 AND payment_status = $2 AND last_payment_id IS NULL RETURNING uid`)
		if err != nil {
			return err
		}
		defer func() {
			_ = stmt.Close()
		}()
		for _, uid := range userUIDs {
			var removed string
			err := stmt.QueryRowContext(ctx, uid, models.PaymentPending).Scan(&removed)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			deleted = append(deleted, removed)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return deleted, nil
}

// TakeRecaptchaToken атомарно забирает и стирает токен reCAPTCHA.
// ok == false, если токена нет (уже проверен или не передавался).
func (s *Storage) TakeRecaptchaToken(ctx context.Context, userUID string, now time.Time) (token string, ok bool, err error) {
	const op = "storage.TakeRecaptchaToken"

	query := `WITH old AS (
			      SELECT uid, recaptcha_token FROM users
			      WHERE uid = $1 AND recaptcha_token IS NOT NULL
			      FOR UPDATE
			  )
			  UPDATE users u
			  SET recaptcha_token = NULL, updated_at = $2
			  FROM old
			  WHERE u.uid = old.uid
			  RETURNING old.recaptcha_token`
	err = s.DB.QueryRowContext(ctx, query, userUID, now).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return token, true, nil
}

// SaveRecaptchaResult сохраняет оценку reCAPTCHA.
func (s *Storage) SaveRecaptchaResult(ctx context.Context, userUID string, score float64, verified bool, now time.Time) error {
	const op = "storage.SaveRecaptchaResult"

	query := `UPDATE users SET recaptcha_score = $1, recaptcha_verified = $2, updated_at = $3 WHERE uid = $4`
	return s.execOne(ctx, op, query, score, verified, now, userUID)
}

// AddAccountFlag добавляет флаг в account_flags; повторное добавление ничего не меняет.
func (s *Storage) AddAccountFlag(ctx context.Context, userUID, flag string, now time.Time) error {
	const op = "storage.AddAccountFlag"

	query := `UPDATE users
			  SET account_flags = CASE
			          WHEN $1 = ANY(account_flags) THEN account_flags
			          ELSE array_append(account_flags, $1)
			      END,
			      updated_at = $2
			  WHERE uid = $3`
	return s.execOne(ctx, op, query, flag, now, userUID)
}

// execOne выполняет UPDATE и возвращает models.ErrNotFound, если строка не найдена.
func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
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

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
