package invoice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Invoice), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int) (*Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Invoice), args.Error(1)
}

func (m *MockRepository) GetByBookingID(ctx context.Context, bookingID int) (*Invoice, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Invoice), args.Error(1)
}

func (m *MockRepository) MarkPaid(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) MarkFailed(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) MarkRefundPending(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Cancel(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Expire(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newInvoiceRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	authed := router.Group("/", func(c *gin.Context) {
		c.Set("customerID", 1)
		c.Next()
	})
	authed.GET("/invoices/:invoiceID", NewHandler(repo).GetInvoice)
	return router
}

func TestGetInvoiceHandler(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, 9).Return(&Invoice{
		ID:         9,
		Number:     "INV/20260831/000137",
		CustomerID: 1,
		Status:     StatusPaid,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/invoices/9", nil)
	w := httptest.NewRecorder()
	newInvoiceRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV/20260831/000137")
}

func TestGetInvoiceHandler_NotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, 99).Return(nil, ErrInvoiceNotFound)

	req := httptest.NewRequest(http.MethodGet, "/invoices/99", nil)
	w := httptest.NewRecorder()
	newInvoiceRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetInvoiceHandler_ForeignInvoiceIsForbidden(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, 9).Return(&Invoice{
		ID:         9,
		CustomerID: 2,
		Status:     StatusPending,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/invoices/9", nil)
	w := httptest.NewRecorder()
	newInvoiceRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
