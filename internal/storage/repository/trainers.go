package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// CreateTrainer добавляет тренера в пул.
func (s *Storage) CreateTrainer(ctx context.Context, trainer models.Trainer) (string, error) {
	const op = "storage.CreateTrainer"

	var id string
	if err := s.DB.QueryRowContext(ctx,
		`INSERT INTO trainers (name, email, active) VALUES ($1, $2, $3) RETURNING id`,
		trainer.Name, trainer.Email, trainer.Active).Scan(&id); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// PickLeastLoadedTrainer выбирает активного тренера с наименьшим числом клиентов;
// при равенстве выбирается добавленный раньше. models.ErrNotFound, если пул пуст.
func (s *Storage) PickLeastLoadedTrainer(ctx context.Context) (*models.Trainer, error) {
	const op = "storage.PickLeastLoadedTrainer"

	query := `SELECT t.id, t.name, t.email, t.active, t.created_at
			  FROM trainers t
			  LEFT JOIN users u ON u.assigned_trainer_id = t.id
			  WHERE t.active
			  GROUP BY t.id
			  ORDER BY COUNT(u.uid) ASC, t.created_at ASC, t.id ASC
			  LIMIT 1`
	var t models.Trainer
	err := s.DB.QueryRowContext(ctx, query).Scan(&t.ID, &t.Name, &t.Email, &t.Active, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}
