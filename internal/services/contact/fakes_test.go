package contact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/cache"
	"github.com/magabrotheeeer/coaching-platform/internal/config"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// memRepo хранилище в памяти с теми же гарантиями, что и PostgreSQL-реализация.
type memRepo struct {
	mu          sync.Mutex
	submissions map[string]*models.ContactSubmission
	replies     map[string][]*models.Reply
	failReplies bool
	// afterGet вызывается один раз после очередного чтения обращения.
	afterGet func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		submissions: map[string]*models.ContactSubmission{},
		replies:     map[string][]*models.Reply{},
	}
}

func (r *memRepo) CreateSubmission(_ context.Context, sub *models.ContactSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *sub
	r.submissions[sub.ID] = &c
	return nil
}

func (r *memRepo) GetSubmission(_ context.Context, id string) (*models.ContactSubmission, error) {
	r.mu.Lock()
	sub, ok := r.submissions[id]
	var c models.ContactSubmission
	if ok {
		c = *sub
	}
	hook := r.afterGet
	r.afterGet = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) ListSubmissions(_ context.Context, filter models.ContactFilter) ([]*models.ContactSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.ContactSubmission, 0)
	for _, sub := range r.submissions {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.Service != "" && sub.Service != filter.Service {
			continue
		}
		c := *sub
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sent.After(result[j].Sent) })
	return result, nil
}

func (r *memRepo) CompareAndSetStatus(_ context.Context, id string, expected, next models.ContactStatus, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok || sub.Status != expected {
		return false, nil
	}
	sub.Status = next
	sub.Replied = next == models.StatusReplied
	sub.LastUpdated = now
	return true, nil
}

func (r *memRepo) SetArchived(_ context.Context, id string, archived bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return models.ErrNotFound
	}
	sub.Archived = archived
	sub.LastUpdated = now
	return nil
}

func (r *memRepo) CreateReplyAndMarkReplied(_ context.Context, reply *models.Reply, now time.Time) (*models.ContactSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[reply.SubmissionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	before := *sub
	c := *reply
	r.replies[reply.SubmissionID] = append(r.replies[reply.SubmissionID], &c)
	sub.Status = models.StatusReplied
	sub.Replied = true
	sub.LastUpdated = now
	return &before, nil
}

func (r *memRepo) ListReplies(_ context.Context, submissionID string) ([]*models.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Reply(nil), r.replies[submissionID]...), nil
}

func (r *memRepo) DeleteSubmission(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReplies {
		return 0, &models.PartialDeleteError{SubmissionID: id, Err: errors.New("connection reset")}
	}
	if _, ok := r.submissions[id]; !ok {
		return 0, models.ErrNotFound
	}
	n := len(r.replies[id])
	delete(r.replies, id)
	delete(r.submissions, id)
	return n, nil
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, exchange, routingKey string, message any) error {
	return m.Called(ctx, exchange, routingKey, message).Error(0)
}

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSubmission(ctx context.Context, sub *models.ContactSubmission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *RepoMock) GetSubmission(ctx context.Context, id string) (*models.ContactSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactSubmission), args.Error(1)
}

func (m *RepoMock) ListSubmissions(ctx context.Context, filter models.ContactFilter) ([]*models.ContactSubmission, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ContactSubmission), args.Error(1)
}

func (m *RepoMock) CompareAndSetStatus(ctx context.Context, id string, expected, next models.ContactStatus, now time.Time) (bool, error) {
	args := m.Called(ctx, id, expected, next, now)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) SetArchived(ctx context.Context, id string, archived bool, now time.Time) error {
	return m.Called(ctx, id, archived, now).Error(0)
}

func (m *RepoMock) CreateReplyAndMarkReplied(ctx context.Context, reply *models.Reply, now time.Time) (*models.ContactSubmission, error) {
	args := m.Called(ctx, reply, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactSubmission), args.Error(1)
}

func (m *RepoMock) ListReplies(ctx context.Context, submissionID string) ([]*models.Reply, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reply), args.Error(1)
}

func (m *RepoMock) DeleteSubmission(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	return c, mr
}

// newTestService собирает сервис на хранилище в памяти и miniredis.
func newTestService(t *testing.T) (*Service, *memRepo, *PublisherMock) {
	repo := newMemRepo()
	c, _ := newTestCache(t)
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return NewService(repo, c, pub, newNoopLogger()), repo, pub
}
