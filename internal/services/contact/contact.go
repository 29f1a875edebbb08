// Package contact реализует входящие обращения из формы обратной связи:
// приём, просмотр, смену статуса, ответы, архивирование, удаление и живую ленту.
package contact

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/metrics"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// ChangesChannel канал Redis, в который публикуется сигнал после каждого изменения обращений.
const ChangesChannel = "contact_submissions:changed"

const (
	cacheTTL          = 30 * time.Second
	maxStatusAttempts = 3
)

// Repository хранилище обращений и ответов.
type Repository interface {
	CreateSubmission(ctx context.Context, sub *models.ContactSubmission) error
	GetSubmission(ctx context.Context, id string) (*models.ContactSubmission, error)
	ListSubmissions(ctx context.Context, filter models.ContactFilter) ([]*models.ContactSubmission, error)
	CompareAndSetStatus(ctx context.Context, id string, expected, next models.ContactStatus, now time.Time) (bool, error)
	SetArchived(ctx context.Context, id string, archived bool, now time.Time) error
	CreateReplyAndMarkReplied(ctx context.Context, reply *models.Reply, now time.Time) (*models.ContactSubmission, error)
	ListReplies(ctx context.Context, submissionID string) ([]*models.Reply, error)
	DeleteSubmission(ctx context.Context, id string) (int, error)
}

// Cache кэш обращений и канал сигналов об изменениях.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string) error
	Subscribe(ctx context.Context, channel string) (<-chan struct{}, func() error, error)
}

// Publisher отправляет уведомления в брокер сообщений.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message any) error
}

// Service бизнес-логика входящих обращений.
type Service struct {
	repo      Repository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	policy    *bluemonday.Policy
	now       func() time.Time

	// generations счётчик инвалидаций по ключу: Get не кладёт в кэш строку,
	// прочитанную до инвалидации.
	genMu       sync.Mutex
	generations map[string]uint64
}

// NewService создаёт сервис обращений.
func NewService(repo Repository, cache Cache, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		cache:       cache,
		publisher:   publisher,
		log:         log,
		policy:      bluemonday.StrictPolicy(),
		now:         func() time.Time { return time.Now().UTC() },
		generations: make(map[string]uint64),
	}
}

func cacheKey(id string) string {
	return "contact:" + id
}

// sanitize удаляет разметку и лишние пробелы.
func (s *Service) sanitize(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

// Submit сохраняет обращение из публичной формы со статусом Unread.
func (s *Service) Submit(ctx context.Context, form models.DummyContactForm) (*models.ContactSubmission, error) {
	name := s.sanitize(form.Name)
	message := s.sanitize(form.Message)
	if name == "" || message == "" {
		return nil, fmt.Errorf("name and message must contain text: %w", models.ErrInvalidInput)
	}

	var phone *string
	if form.Phone != nil {
		if p := s.sanitize(*form.Phone); p != "" {
			phone = &p
		}
	}
	email := strings.TrimSpace(form.Email)
	now := s.now()
	sub := &models.ContactSubmission{
		ID:                 uuid.NewString(),
		Name:               name,
		Email:              email,
		EmailLower:         strings.ToLower(email),
		Phone:              phone,
		Service:            s.sanitize(form.Service),
		ServiceDisplayText: s.sanitize(form.ServiceDisplayText),
		Message:            message,
		Newsletter:         form.Newsletter,
		Status:             models.StatusUnread,
		Sent:               now,
		LastUpdated:        now,
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	metrics.RecordContactSubmission()
	s.log.Info("contact submission created", slog.String("id", sub.ID), slog.String("service", sub.Service))
	s.signalChange(ctx)
	return sub, nil
}

// Get возвращает обращение, сначала из кэша.
func (s *Service) Get(ctx context.Context, id string) (*models.ContactSubmission, error) {
	var cached models.ContactSubmission
	found, err := s.cache.Get(ctx, cacheKey(id), &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey(id)), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	gen := s.generation(id)
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.generation(id) != gen {
		s.log.Debug("submission changed during read, cache fill skipped", slog.String("id", id))
		return sub, nil
	}
	if err := s.cache.Set(ctx, cacheKey(id), sub, cacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey(id)), sl.Err(err))
	}
	return sub, nil
}

// List возвращает обращения по фильтру, новые первыми.
func (s *Service) List(ctx context.Context, filter models.ContactFilter) ([]*models.ContactSubmission, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.ErrInvalidStatus
	}
	return s.repo.ListSubmissions(ctx, filter)
}

// UpdateStatus единственный путь смены статуса обращения.
// Выход из Replied в Unread или Read отклоняется с *models.TransitionError.
// Запись условная: если статус изменился между чтением и записью, попытка повторяется.
func (s *Service) UpdateStatus(ctx context.Context, id string, next models.ContactStatus) (*models.ContactSubmission, error) {
	if !next.Valid() {
		return nil, models.ErrInvalidStatus
	}

	for range maxStatusAttempts {
		current, err := s.repo.GetSubmission(ctx, id)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(current.Status, next) {
			metrics.RecordRejectedTransition()
			return nil, &models.TransitionError{From: current.Status, To: next}
		}

		now := s.now()
		ok, err := s.repo.CompareAndSetStatus(ctx, id, current.Status, next, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.log.Debug("status changed concurrently, retrying", slog.String("id", id))
			continue
		}

		metrics.RecordTransition(current.Status, next)
		s.invalidate(ctx, id)
		s.signalChange(ctx)

		current.Status = next
		current.Replied = next == models.StatusReplied
		current.LastUpdated = now
		return current, nil
	}
	return nil, fmt.Errorf("update status of %s: %w", id, models.ErrConflict)
}

// CreateReply сохраняет ответ и переводит обращение в Replied одной транзакцией,
// затем ставит в очередь письмо автору обращения.
func (s *Service) CreateReply(ctx context.Context, id, content, sentBy string) (*models.Reply, error) {
	content = s.sanitize(content)
	if content == "" {
		return nil, models.ErrEmptyReply
	}

	now := s.now()
	reply := &models.Reply{
		ID:           uuid.NewString(),
		SubmissionID: id,
		Content:      content,
		SentBy:       sentBy,
		CreatedAt:    now,
	}
	before, err := s.repo.CreateReplyAndMarkReplied(ctx, reply, now)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			metrics.RecordRejectedTransition()
		}
		return nil, err
	}

	metrics.RecordTransition(before.Status, models.StatusReplied)
	s.invalidate(ctx, id)
	s.signalChange(ctx)

	notification := models.ReplyNotification{
		SubmissionID: id,
		To:           before.Email,
		Name:         before.Name,
		Content:      content,
		SentBy:       sentBy,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.ExchangeNotifications, rabbitmq.RoutingKeyContactReplied, notification); err != nil {
		s.log.Error("failed to queue reply email", slog.String("id", id), sl.Err(err))
	}
	return reply, nil
}

// ListReplies возвращает ответы на обращение в порядке создания.
func (s *Service) ListReplies(ctx context.Context, id string) ([]*models.Reply, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListReplies(ctx, id)
}

// SetArchived архивирует обращение или возвращает его из архива; статус не меняется.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (*models.ContactSubmission, error) {
	if err := s.repo.SetArchived(ctx, id, archived, s.now()); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.signalChange(ctx)
	return s.repo.GetSubmission(ctx, id)
}

// Delete удаляет обращение вместе со всеми ответами.
// При *models.PartialDeleteError обращение остаётся на месте, вызов можно повторить.
func (s *Service) Delete(ctx context.Context, id string) error {
	replies, err := s.repo.DeleteSubmission(ctx, id)
	if err != nil {
		var partial *models.PartialDeleteError
		if errors.As(err, &partial) {
			s.log.Error("cascade delete incomplete", slog.String("id", id), sl.Err(err))
		}
		return err
	}
	s.log.Info("contact submission deleted", slog.String("id", id), slog.Int("replies", replies))
	s.invalidate(ctx, id)
	s.signalChange(ctx)
	return nil
}

// Subscribe передаёт в fn текущий список по фильтру, а затем полный пересчитанный
// список после каждого изменения. Возвращается после отмены ctx, закрытия канала
// сигналов или первой ошибки fn.
func (s *Service) Subscribe(ctx context.Context, filter models.ContactFilter, fn func([]*models.ContactSubmission) error) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return models.ErrInvalidStatus
	}

	signals, stop, err := s.cache.Subscribe(ctx, ChangesChannel)
	if err != nil {
		return err
	}
	defer func() {
		if err := stop(); err != nil {
			s.log.Debug("failed to close subscription", sl.Err(err))
		}
	}()

	deliver := func() error {
		list, err := s.repo.ListSubmissions(ctx, filter)
		if err != nil {
			return err
		}
		return fn(list)
	}

	if err := deliver(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if err := deliver(); err != nil {
				return err
			}
		}
	}
}

func (s *Service) generation(id string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[id]
}

func (s *Service) invalidate(ctx context.Context, id string) {
	s.genMu.Lock()
	s.generations[id]++
	s.genMu.Unlock()

	if err := s.cache.Invalidate(ctx, cacheKey(id)); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey(id)), sl.Err(err))
	}
}

func (s *Service) signalChange(ctx context.Context) {
	if err := s.cache.Publish(ctx, ChangesChannel); err != nil {
		s.log.Warn("failed to publish change signal", sl.Err(err))
	}
}
