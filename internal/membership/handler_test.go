package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Plan), args.Error(1)
}

func (m *MockRepository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Plan), args.Error(1)
}

func (m *MockRepository) GetActiveBalance(ctx context.Context, customerID int) (*Balance, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Balance), args.Error(1)
}

func (m *MockRepository) DeductSessions(ctx context.Context, membershipID, n int) error {
	args := m.Called(ctx, membershipID, n)
	return args.Error(0)
}

func (m *MockRepository) CreateMembership(ctx context.Context, customerID int, plan *Plan) (*Membership, error) {
	args := m.Called(ctx, customerID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func newMembershipRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo)

	router := gin.New()
	authed := router.Group("/", func(c *gin.Context) {
		c.Set("customerID", 1)
		c.Next()
	})
	authed.GET("/membership/plans", h.ListPlans)
	authed.GET("/membership/balance", h.GetBalance)
	authed.POST("/membership/discount-preview", h.PreviewDiscount)
	return router
}

func TestListPlansHandler(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListPlans", mock.Anything).Return([]Plan{
		{ID: 1, Name: "Monthly 4", SessionCount: 4, DurationDays: 30, Price: 450000},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/membership/plans", nil)
	w := httptest.NewRecorder()
	newMembershipRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var plans []Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "Monthly 4", plans[0].Name)
}

func TestGetBalanceHandler_NoMembership(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetActiveBalance", mock.Anything, 1).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/membership/balance", nil)
	w := httptest.NewRecorder()
	newMembershipRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_membership":false`)
}

func TestGetBalanceHandler_ActiveMembership(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetActiveBalance", mock.Anything, 1).Return(&Balance{
		MembershipID:      7,
		PlanName:          "Monthly 8",
		RemainingSessions: 3,
		RemainingDays:     20,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/membership/balance", nil)
	w := httptest.NewRecorder()
	newMembershipRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_membership":true`)
	assert.Contains(t, w.Body.String(), `"remaining_sessions":3`)
}

func TestPreviewDiscountHandler(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetActiveBalance", mock.Anything, 1).Return(&Balance{
		MembershipID:      7,
		RemainingSessions: 1,
	}, nil)

	body := `{"items":[
		{"date":"2026-09-01","time_slot":"18:00","price":150000},
		{"date":"2026-09-01","time_slot":"19:00","price":180000}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/membership/discount-preview", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newMembershipRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var disc Discount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &disc))
	assert.True(t, disc.CanUse)
	assert.Equal(t, 1, disc.SlotsToDeduct)
	assert.Equal(t, int64(150000), disc.DiscountAmount)
	assert.Equal(t, int64(180000), disc.DiscountedTotal)
}

func TestPreviewDiscountHandler_RequiresItems(t *testing.T) {
	repo := new(MockRepository)

	req := httptest.NewRequest(http.MethodPost, "/membership/discount-preview", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newMembershipRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "GetActiveBalance", mock.Anything, mock.Anything)
}
