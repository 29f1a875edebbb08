package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// CreateIdentity создаёт учётную запись без профиля (сотрудники, тренеры).
func (s *Storage) CreateIdentity(ctx context.Context, identity models.Identity) (string, error) {
	const op = "storage.CreateIdentity"

	var uid string
	if err := s.DB.QueryRowContext(ctx,
		`INSERT INTO identities (email, password_hash, role) VALUES ($1, $2, $3) RETURNING uid`,
		identity.Email, identity.PasswordHash, identity.Role).Scan(&uid); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetIdentityByEmail возвращает учётную запись по email.
func (s *Storage) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	const op = "storage.GetIdentityByEmail"

	var i models.Identity
	err := s.DB.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, role FROM identities WHERE email = $1`, email).
		Scan(&i.UUID, &i.Email, &i.PasswordHash, &i.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &i, nil
}

// DeleteIdentity удаляет учётную запись; models.ErrIdentityNotFound, если её уже нет.
func (s *Storage) DeleteIdentity(ctx context.Context, userUID string) error {
	const op = "storage.DeleteIdentity"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM identities WHERE uid = $1`, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrIdentityNotFound)
	}
	return nil
}
