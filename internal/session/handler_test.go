package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitstudio/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) result(args mock.Arguments) (*Session, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockService) CreateSession(ctx context.Context, actor auth.Identity, req CreateSessionRequest) (*Session, error) {
	return m.result(m.Called(ctx, actor, req))
}

func (m *MockService) GetSession(ctx context.Context, id int64) (*Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockService) ListPublic(ctx context.Context, filter ListFilter) ([]Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockService) ListMine(ctx context.Context, actor auth.Identity) ([]Session, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockService) UpdateSession(ctx context.Context, actor auth.Identity, id int64, req UpdateSessionRequest) (*Session, error) {
	return m.result(m.Called(ctx, actor, id, req))
}

func (m *MockService) DeleteSession(ctx context.Context, actor auth.Identity, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockService) JoinSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	return m.result(m.Called(ctx, actor, id))
}

func (m *MockService) StartSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	return m.result(m.Called(ctx, actor, id))
}

func (m *MockService) CompleteSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	return m.result(m.Called(ctx, actor, id))
}

func (m *MockService) CancelSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	return m.result(m.Called(ctx, actor, id))
}

func newRouter(svc Service, identity auth.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetIdentity(c, identity)
		c.Next()
	})

	h := NewHandler(svc)
	r.POST("/sessions", h.Create)
	r.GET("/sessions/public", h.ListPublic)
	r.DELETE("/sessions/:id", h.Delete)
	r.POST("/sessions/:id/join", h.Join)
	r.POST("/sessions/:id/cancel", h.Cancel)
	return r
}

func TestHandlerCreate(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"date":"2026-05-01","time":"09:30","type":"yoga","max_clients":6}`,
			setupMock: func(m *MockService) {
				m.On("CreateSession", mock.Anything, trainer, mock.AnythingOfType("session.CreateSessionRequest")).
					Return(newSession(StatusPending, 6), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing capacity",
			body:           `{"date":"2026-05-01","time":"09:30","type":"yoga"}`,
			setupMock:      func(m *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad date from service",
			body: `{"date":"May 1","time":"09:30","type":"yoga","max_clients":6}`,
			setupMock: func(m *MockService) {
				m.On("CreateSession", mock.Anything, trainer, mock.Anything).Return(nil, ErrInvalidDate)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			newRouter(svc, trainer).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandlerJoin(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{name: "joined", expectedStatus: http.StatusOK, expectedBody: `"status":"confirmed"`},
		{name: "full", err: ErrSessionFull, expectedStatus: http.StatusBadRequest, expectedBody: `"message":"session is full"`},
		{name: "duplicate", err: ErrAlreadyEnrolled, expectedStatus: http.StatusConflict},
		{name: "missing", err: ErrSessionNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.err != nil {
				svc.On("JoinSession", mock.Anything, member, int64(10)).Return(nil, tt.err)
			} else {
				svc.On("JoinSession", mock.Anything, member, int64(10)).Return(newSession(StatusConfirmed, 2, member.ID), nil)
			}

			w := httptest.NewRecorder()
			newRouter(svc, member).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/10/join", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestHandlerBadID(t *testing.T) {
	svc := new(MockService)

	w := httptest.NewRecorder()
	newRouter(svc, trainer).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/abc/cancel", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id")
	svc.AssertNotCalled(t, "CancelSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerCancelForbidden(t *testing.T) {
	svc := new(MockService)
	svc.On("CancelSession", mock.Anything, other, int64(10)).Return(nil, ErrNotOwner)

	w := httptest.NewRecorder()
	newRouter(svc, other).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/10/cancel", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerDeleteWithEnrollments(t *testing.T) {
	svc := new(MockService)
	svc.On("DeleteSession", mock.Anything, trainer, int64(10)).Return(ErrHasEnrollments)

	w := httptest.NewRecorder()
	newRouter(svc, trainer).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/10", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlerListPublic(t *testing.T) {
	svc := new(MockService)
	svc.On("ListPublic", mock.Anything, mock.MatchedBy(func(f ListFilter) bool {
		return f.Type == "yoga" && f.Date != nil && f.Date.String() == "2026-05-01"
	})).Return([]Session{*newSession(StatusPending, 4)}, nil)

	w := httptest.NewRecorder()
	newRouter(svc, member).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/public?type=yoga&date=2026-05-01", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"date":"2026-05-01"`)

	w = httptest.NewRecorder()
	newRouter(svc, member).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/public?date=tomorrow", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
