package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindStalePendingUsers(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) DeleteUsers(ctx context.Context, userUIDs []string) ([]string, error) {
	args := m.Called(ctx, userUIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) DeleteIdentity(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var now = time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)

func newTestService(repo PendingUserRepository) *CleanupService {
	s := NewCleanupService(repo, newNoopLogger(), 3*time.Hour, 48*time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func TestNextRun(t *testing.T) {
	runAt := 3 * time.Hour
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before run time", time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC), time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)},
		{"exactly at run time", time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC), time.Date(2024, 6, 11, 3, 0, 0, 0, time.UTC)},
		{"after run time", time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC), time.Date(2024, 6, 11, 3, 0, 0, 0, time.UTC)},
		{"month boundary", time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC), time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC)},
		{
			"non-UTC input",
			time.Date(2024, 6, 10, 5, 0, 0, 0, time.FixedZone("MSK", 3*60*60)),
			time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextRun(tt.now, runAt)), "got %s", NextRun(tt.now, runAt))
		})
	}
}

func TestCleanupService_RunOnce(t *testing.T) {
	cutoff := now.Add(-48 * time.Hour)

	tests := []struct {
		name        string
		setupMocks  func(*MockRepository)
		wantDeleted int
		wantErr     bool
	}{
		{
			name: "deletes stale accounts",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return([]string{"u1", "u2"}, nil).Once()
				r.On("DeleteUsers", mock.Anything, []string{"u1", "u2"}).Return([]string{"u1", "u2"}, nil).Once()
				r.On("DeleteIdentity", mock.Anything, "u1").Return(nil).Once()
				r.On("DeleteIdentity", mock.Anything, "u2").Return(nil).Once()
			},
			wantDeleted: 2,
		},
		{
			name: "nothing to delete",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return([]string{}, nil).Once()
			},
		},
		{
			name: "missing identity does not abort",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return([]string{"u1", "u2"}, nil).Once()
				r.On("DeleteUsers", mock.Anything, []string{"u1", "u2"}).Return([]string{"u1", "u2"}, nil).Once()
				r.On("DeleteIdentity", mock.Anything, "u1").Return(models.ErrIdentityNotFound).Once()
				r.On("DeleteIdentity", mock.Anything, "u2").Return(errors.New("timeout")).Once()
			},
			wantDeleted: 2,
		},
		{
			name: "account paid after selection keeps identity",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return([]string{"u1", "paid"}, nil).Once()
				r.On("DeleteUsers", mock.Anything, []string{"u1", "paid"}).Return([]string{"u1"}, nil).Once()
				r.On("DeleteIdentity", mock.Anything, "u1").Return(nil).Once()
			},
			wantDeleted: 1,
		},
		{
			name: "no profile deleted",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return([]string{"paid"}, nil).Once()
				r.On("DeleteUsers", mock.Anything, []string{"paid"}).Return([]string{}, nil).Once()
			},
		},
		{
			name: "batch delete fails",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return([]string{"u1"}, nil).Once()
				r.On("DeleteUsers", mock.Anything, []string{"u1"}).Return(nil, errors.New("tx aborted")).Once()
			},
			wantErr: true,
		},
		{
			name: "query fails",
			setupMocks: func(r *MockRepository) {
				r.On("FindStalePendingUsers", mock.Anything, cutoff).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			deleted, err := newTestService(repo).RunOnce(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantDeleted, deleted)
			}
			repo.AssertExpectations(t)
			repo.AssertNotCalled(t, "DeleteIdentity", mock.Anything, "paid")
		})
	}
}

func TestCleanupService_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	repo.AssertNotCalled(t, "FindStalePendingUsers", mock.Anything, mock.Anything)
}
