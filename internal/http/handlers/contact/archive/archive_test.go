package archive

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SetArchived(ctx context.Context, id string, archived bool) (*models.ContactSubmission, error) {
	args := m.Called(ctx, id, archived)
	if res := args.Get(0); res != nil {
		return res.(*models.ContactSubmission), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestArchiveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "archive keeps status",
			body: `{"archived":true}`,
			setupMock: func(m *MockService) {
				m.On("SetArchived", mock.Anything, "s1", true).
					Return(&models.ContactSubmission{ID: "s1", Status: models.StatusReplied, Archived: true}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"Archived":true`,
		},
		{
			name: "unarchive",
			body: `{"archived":false}`,
			setupMock: func(m *MockService) {
				m.On("SetArchived", mock.Anything, "s1", false).
					Return(&models.ContactSubmission{ID: "s1"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"Archived":false`,
		},
		{
			name:           "missing flag",
			body:           `{}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found",
			body: `{"archived":true}`,
			setupMock: func(m *MockService) {
				m.On("SetArchived", mock.Anything, "s1", true).Return(nil, models.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			router := chi.NewRouter()
			router.Patch("/submissions/{id}/archive", New(logger, service).ServeHTTP)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/submissions/s1/archive", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			service.AssertExpectations(t)
		})
	}
}
