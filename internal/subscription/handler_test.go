package subscription

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitstudio/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, s *Subscription) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) ListActiveByMember(ctx context.Context, memberID int64) ([]Subscription, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Subscription), args.Error(1)
}

func TestHandlerListMine(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		subs           []Subscription
		err            error
		expectedStatus int
	}{
		{name: "ok", subs: []Subscription{{ID: 1, MemberID: 5, Active: true}}, expectedStatus: http.StatusOK},
		{name: "database error", err: errors.New("db down"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("ListActiveByMember", mock.Anything, int64(5)).Return(tt.subs, tt.err)

			r := gin.New()
			r.Use(func(c *gin.Context) {
				auth.SetIdentity(c, auth.Identity{ID: 5, Role: auth.RoleMember})
				c.Next()
			})
			r.GET("/subscriptions", NewHandler(repo).ListMine)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err != nil {
				assert.NotContains(t, w.Body.String(), "db down")
			}
		})
	}
}
