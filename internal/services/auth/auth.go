// Package auth содержит логику регистрации клиентов, входа и создания сотрудников.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/password"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// IdentityRepository описывает контракт для работы с учётными записями и профилями.
type IdentityRepository interface {
	// CreateUserWithIdentity создаёт учётную запись и профиль клиента и возвращает UID.
	CreateUserWithIdentity(ctx context.Context, identity models.Identity, user models.User, recaptchaToken string) (string, error)

	// CreateIdentity создаёт учётную запись без профиля.
	CreateIdentity(ctx context.Context, identity models.Identity) (string, error)

	// GetIdentityByEmail возвращает учётную запись по email.
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
}

// Publisher отправляет события в брокер.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message any) error
}

// AuthService отвечает за регистрацию, авторизацию и выпуск JWT.
type AuthService struct {
	users     IdentityRepository
	jwtMaker  jwt.Maker
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users IdentityRepository, jwtMaker jwt.Maker, publisher Publisher, log *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		jwtMaker:  jwtMaker,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register создает клиента в статусе pending и публикует user.created для проверки reCAPTCHA.
// Ошибка публикации только логируется: профиль уже создан.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	const op = "auth.Register"

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	identity := models.Identity{
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleClient,
	}
	user := models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		CreatedAt:   s.now(),
	}
	uid, err := s.users.CreateUserWithIdentity(ctx, identity, user, req.RecaptchaToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	event := models.SignupEvent{UserUID: uid}
	if err := s.publisher.Publish(ctx, rabbitmq.ExchangeSignup, models.EventUserCreated, event); err != nil {
		s.log.Error("failed to publish user.created", slog.String("user_uid", uid), sl.Err(err))
	}
	return uid, nil
}

// Login проверяет пароль и выпускает JWT с uid, email и ролью.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (token, role string, err error) {
	const op = "auth.Login"

	identity, err := s.users.GetIdentityByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		return "", "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Verify(identity.PasswordHash, rawPassword); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	token, err = s.jwtMaker.GenerateToken(identity.UUID, identity.Email, identity.Role)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return token, identity.Role, nil
}

// CreateStaff создаёт учётную запись сотрудника или администратора.
func (s *AuthService) CreateStaff(ctx context.Context, email, rawPassword, role string) (string, error) {
	const op = "auth.CreateStaff"

	if role != models.RoleStaff && role != models.RoleAdmin {
		return "", fmt.Errorf("%s: role %q: %w", op, role, models.ErrInvalidInput)
	}
	hashed, err := hashPassword(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	uid, err := s.users.CreateIdentity(ctx, models.Identity{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hashed,
		Role:         role,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// hashPassword сводит ошибки длины пароля к models.ErrInvalidInput.
func hashPassword(raw string) (string, error) {
	hashed, err := password.Hash(raw)
	if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
		return "", fmt.Errorf("%v: %w", err, models.ErrInvalidInput)
	}
	return hashed, err
}
