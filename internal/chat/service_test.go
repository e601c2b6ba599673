package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fitstudio/internal/apperr"
	"fitstudio/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertAccess(ctx context.Context, trainerID, memberID int64, expiresAt, unlockedAt time.Time, reason string) (*Access, error) {
	args := m.Called(ctx, trainerID, memberID, expiresAt, unlockedAt, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Access), args.Error(1)
}

func (m *MockRepository) GetAccess(ctx context.Context, trainerID, memberID int64) (*Access, error) {
	args := m.Called(ctx, trainerID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Access), args.Error(1)
}

func (m *MockRepository) CreateMessage(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	msg.ID = 1
	return args.Error(0)
}

func (m *MockRepository) ListMessages(ctx context.Context, trainerID, memberID int64, limit, offset int) ([]Message, error) {
	args := m.Called(ctx, trainerID, memberID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) ListThreads(ctx context.Context, trainerID int64) ([]Thread, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Thread), args.Error(1)
}

type MockLinker struct {
	mock.Mock
}

func (m *MockLinker) HasActiveSession(ctx context.Context, trainerID, memberID int64) (bool, error) {
	args := m.Called(ctx, trainerID, memberID)
	return args.Bool(0), args.Error(1)
}

type published struct {
	to    int64
	event Event
}

type fakePublisher struct {
	events []published
}

func (p *fakePublisher) SendToUser(accountID int64, event Event) {
	p.events = append(p.events, published{to: accountID, event: event})
}

var (
	now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	member  = auth.Identity{ID: 5, Role: auth.RoleMember}
	trainer = auth.Identity{ID: 2, Role: auth.RoleTrainer}
)

func newTestService(repo Repository, linker SessionLinker, pub Publisher) *service {
	s := NewService(repo, linker, pub, DefaultWindow).(*service)
	s.now = func() time.Time { return now }
	return s
}

func TestGrantOrRefresh(t *testing.T) {
	repo := new(MockRepository)
	repo.On("UpsertAccess", mock.Anything, int64(2), int64(5), now.Add(30*24*time.Hour), now, "booking").
		Return(&Access{TrainerID: 2, MemberID: 5, ExpiresAt: now.Add(30 * 24 * time.Hour)}, nil)

	require.NoError(t, newTestService(repo, nil, nil).GrantOrRefresh(context.Background(), 2, 5, "booking"))
	repo.AssertExpectations(t)
}

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name    string
		access  *Access
		err     error
		wantErr bool
	}{
		{name: "open", access: &Access{ExpiresAt: now.Add(time.Hour)}},
		{name: "expired a second ago", access: &Access{ExpiresAt: now.Add(-time.Second)}, wantErr: true},
		{name: "expires right now", access: &Access{ExpiresAt: now}, wantErr: true},
		{name: "never granted", err: ErrAccessNotFound, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.access != nil {
				repo.On("GetAccess", mock.Anything, int64(2), int64(5)).Return(tt.access, nil)
			} else {
				repo.On("GetAccess", mock.Anything, int64(2), int64(5)).Return(nil, tt.err)
			}

			err := newTestService(repo, nil, nil).CheckAccess(context.Background(), 2, 5)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrAccessDenied)
			assert.EqualError(t, err, "Chat locked. Book again to unlock chat for 30 days.")
		})
	}

	t.Run("database error passes through", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetAccess", mock.Anything, int64(2), int64(5)).Return(nil, errors.New("timeout"))

		err := newTestService(repo, nil, nil).CheckAccess(context.Background(), 2, 5)
		assert.EqualError(t, err, "timeout")
	})
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	open := &Access{TrainerID: 2, MemberID: 5, ExpiresAt: now.Add(24 * time.Hour)}

	t.Run("member to trainer", func(t *testing.T) {
		repo := new(MockRepository)
		linker := new(MockLinker)
		pub := &fakePublisher{}

		repo.On("GetAccess", ctx, int64(2), int64(5)).Return(open, nil)
		linker.On("HasActiveSession", ctx, int64(2), int64(5)).Return(true, nil)
		repo.On("CreateMessage", ctx, mock.MatchedBy(func(m *Message) bool {
			return m.TrainerID == 2 && m.MemberID == 5 && m.SenderKind == SenderMember && m.SenderID == 5 && m.Text == "hello"
		})).Return(nil)

		msg, err := newTestService(repo, linker, pub).SendMessage(ctx, member, 2, "  hello ")
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Text)

		require.Len(t, pub.events, 1)
		assert.Equal(t, int64(2), pub.events[0].to)
		assert.Equal(t, "message", pub.events[0].event.Type)
	})

	t.Run("trainer to member", func(t *testing.T) {
		repo := new(MockRepository)
		linker := new(MockLinker)

		repo.On("GetAccess", ctx, int64(2), int64(5)).Return(open, nil)
		linker.On("HasActiveSession", ctx, int64(2), int64(5)).Return(true, nil)
		repo.On("CreateMessage", ctx, mock.MatchedBy(func(m *Message) bool {
			return m.SenderKind == SenderTrainer && m.SenderID == 2
		})).Return(nil)

		_, err := newTestService(repo, linker, nil).SendMessage(ctx, trainer, 5, "see you monday")
		require.NoError(t, err)
	})

	t.Run("expired window", func(t *testing.T) {
		repo := new(MockRepository)
		linker := new(MockLinker)
		repo.On("GetAccess", ctx, int64(2), int64(5)).Return(&Access{ExpiresAt: now.Add(-time.Second)}, nil)

		_, err := newTestService(repo, linker, nil).SendMessage(ctx, member, 2, "hello")
		assert.EqualError(t, err, "Chat locked. Book again to unlock chat for 30 days.")
		linker.AssertNotCalled(t, "HasActiveSession", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("open window without active session", func(t *testing.T) {
		repo := new(MockRepository)
		linker := new(MockLinker)
		repo.On("GetAccess", ctx, int64(2), int64(5)).Return(open, nil)
		linker.On("HasActiveSession", ctx, int64(2), int64(5)).Return(false, nil)

		_, err := newTestService(repo, linker, nil).SendMessage(ctx, member, 2, "hello")
		assert.ErrorIs(t, err, ErrNoActiveSession)
		repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("text bounds", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockLinker), nil)

		_, err := svc.SendMessage(ctx, member, 2, "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)

		_, err = svc.SendMessage(ctx, member, 2, strings.Repeat("é", MaxMessageLength+1))
		assert.ErrorIs(t, err, ErrMessageTooLong)
	})

	t.Run("admins cannot chat", func(t *testing.T) {
		_, err := newTestService(new(MockRepository), nil, nil).SendMessage(ctx, auth.Identity{ID: 1, Role: auth.RoleAdmin}, 2, "hi")
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})
}

func TestListMessagesOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	linker := new(MockLinker)

	repo.On("GetAccess", ctx, int64(2), int64(5)).Return(&Access{ExpiresAt: now.Add(time.Hour)}, nil)
	linker.On("HasActiveSession", ctx, int64(2), int64(5)).Return(true, nil)
	repo.On("ListMessages", ctx, int64(2), int64(5), 50, 0).Return([]Message{{ID: 3}, {ID: 2}, {ID: 1}}, nil)

	msgs, err := newTestService(repo, linker, nil).ListMessages(ctx, trainer, 5, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, []int64{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestGetAccess(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	repo.On("GetAccess", ctx, int64(2), int64(5)).Return(nil, ErrAccessNotFound).Once()
	status, err := newTestService(repo, nil, nil).GetAccess(ctx, member, 2)
	require.NoError(t, err)
	assert.False(t, status.Unlocked)
	assert.Nil(t, status.ExpiresAt)
	assert.Equal(t, ErrChatLocked.Error(), status.Message)

	expires := now.Add(48 * time.Hour)
	repo.On("GetAccess", ctx, int64(2), int64(5)).Return(&Access{ExpiresAt: expires, LastUnlockedAt: now}, nil).Once()
	status, err = newTestService(repo, nil, nil).GetAccess(ctx, trainer, 5)
	require.NoError(t, err)
	assert.True(t, status.Unlocked)
	assert.Equal(t, expires, *status.ExpiresAt)
	assert.Empty(t, status.Message)
}

func TestListThreadsTrainerOnly(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListThreads", mock.Anything, int64(2)).Return([]Thread{{MemberID: 5}}, nil)
	svc := newTestService(repo, nil, nil)

	threads, err := svc.ListThreads(context.Background(), trainer)
	require.NoError(t, err)
	assert.Len(t, threads, 1)

	_, err = svc.ListThreads(context.Background(), member)
	assert.ErrorIs(t, err, ErrTrainersOnly)
}

func TestLockedErrorUsesWindow(t *testing.T) {
	assert.EqualError(t, LockedError(7*24*time.Hour), "Chat locked. Book again to unlock chat for 7 days.")
}
