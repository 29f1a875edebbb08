package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/coaching-platform/internal/migrations"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateSubmission создает тестовое обращение с заданным статусом
func (f *TestDataFactory) CreateSubmission(t *testing.T, id, service string, status models.ContactStatus, sent time.Time) {
	err := f.storage.CreateSubmission(context.Background(), &models.ContactSubmission{
		ID:          id,
		Name:        "Jane Doe",
		Email:       "Jane@Example.com",
		EmailLower:  "jane@example.com",
		Service:     service,
		Message:     "I want a coach",
		Status:      status,
		Sent:        sent,
		LastUpdated: sent,
		Replied:     status == models.StatusReplied,
	})
	require.NoError(t, err)
}

// CreateReply создает тестовый ответ напрямую, минуя смену статуса
func (f *TestDataFactory) CreateReply(t *testing.T, id, submissionID string, createdAt time.Time) {
	_, err := f.storage.DB.Exec(`INSERT INTO contact_replies (id, submission_id, content, sent_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`, id, submissionID, "reply "+id, "coach@x.com", createdAt)
	require.NoError(t, err)
}

// CreateUser создает учётную запись и профиль с заданным статусом оплаты и датой создания
func (f *TestDataFactory) CreateUser(t *testing.T, email string, status models.PaymentStatus, createdAt time.Time) string {
	uid, err := f.storage.CreateUserWithIdentity(context.Background(),
		models.Identity{Email: email, PasswordHash: "hash", Role: models.RoleClient},
		models.User{Email: email, DisplayName: "Client", CreatedAt: createdAt},
		"captcha-token")
	require.NoError(t, err)
	if status != models.PaymentPending {
		_, err = f.storage.DB.Exec(`UPDATE users SET payment_status = $1 WHERE uid = $2`, status, uid)
		require.NoError(t, err)
	}
	return uid
}

// CreateTrainer создает тренера в пуле
func (f *TestDataFactory) CreateTrainer(t *testing.T, name, email string, active bool) string {
	id, err := f.storage.CreateTrainer(context.Background(), models.Trainer{Name: name, Email: email, Active: active})
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// CountRows возвращает число строк в таблице по условию column = value
func (v *TestVerification) CountRows(t *testing.T, table, column string, value any) int {
	var count int
	err := v.storage.DB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", table, column), value).Scan(&count)
	require.NoError(t, err)
	return count
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")

	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err, "Failed to get host")
	port, err := postgresContainer.MappedPort(ctx, "5432")
	require.NoError(t, err, "Failed to get port")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		_ = storage.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}
