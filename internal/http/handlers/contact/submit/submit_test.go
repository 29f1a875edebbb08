package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Submit(ctx context.Context, form models.DummyContactForm) (*models.ContactSubmission, error) {
	args := m.Called(ctx, form)
	if res := args.Get(0); res != nil {
		return res.(*models.ContactSubmission), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSubmitHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := models.DummyContactForm{
		Name:    "Ann",
		Email:   "ann@example.com",
		Service: "personal-training",
		Message: "Hello",
	}

	tests := []struct {
		name           string
		body           any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "created",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Submit", mock.Anything, valid).
					Return(&models.ContactSubmission{ID: "s1", Name: "Ann", Status: models.StatusUnread}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"Status":"Unread"`,
		},
		{
			name:           "invalid json",
			body:           "{not json",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "invalid email",
			body:           models.DummyContactForm{Name: "Ann", Email: "nope", Service: "x", Message: "Hi"},
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "must be a valid email address",
		},
		{
			name: "markup only message",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Submit", mock.Anything, valid).Return(nil, models.ErrInvalidInput).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid input"`,
		},
		{
			name: "storage error",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Submit", mock.Anything, valid).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not submit contact form"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else {
				var err error
				body, err = json.Marshal(tt.body)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			New(logger, service).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			service.AssertExpectations(t)
		})
	}
}
