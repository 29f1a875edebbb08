package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (string, string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.String(1), args.Error(2)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name         string
		body         string
		setupMock    func(*AuthServiceMock)
		wantCode     int
		wantContains string
	}{
		{
			name: "success",
			body: `{"email":"staff@example.com","password":"password123"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "staff@example.com", "password123").Return("jwt", models.RoleStaff, nil).Once()
			},
			wantCode:     http.StatusOK,
			wantContains: `"token":"jwt"`,
		},
		{
			name: "wrong credentials",
			body: `{"email":"staff@example.com","password":"nope"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "staff@example.com", "nope").
					Return("", "", fmt.Errorf("auth.Login: %w", models.ErrInvalidCredentials)).Once()
			},
			wantCode:     http.StatusUnauthorized,
			wantContains: "invalid credentials",
		},
		{
			name: "internal error",
			body: `{"email":"staff@example.com","password":"password123"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "staff@example.com", "password123").Return("", "", errors.New("db down")).Once()
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:         "missing password",
			body:         `{"email":"staff@example.com"}`,
			setupMock:    func(*AuthServiceMock) {},
			wantCode:     http.StatusUnprocessableEntity,
			wantContains: "field Password is a required field",
		},
		{
			name:      "bad json",
			body:      `{`,
			setupMock: func(*AuthServiceMock) {},
			wantCode:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(AuthServiceMock)
			tt.setupMock(service)

			rec := httptest.NewRecorder()
			New(logger, service).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantContains)
			service.AssertExpectations(t)
		})
	}
}
