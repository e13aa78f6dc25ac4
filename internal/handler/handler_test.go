package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookleaf-royalties/internal/model"
	"github.com/mmeshcher/bookleaf-royalties/internal/service"
)

type stubService struct {
	authorsResp []model.AuthorSummary
	authorsErr  error

	authorResp *model.AuthorDetail
	authorErr  error

	salesResp []model.AuthorSale
	salesErr  error

	withdrawalsResp []model.Withdrawal
	withdrawalsErr  error

	receiptResp *model.WithdrawalReceipt
	withdrawErr error

	gotAuthorID int64
	gotAmount   int64
	called      bool
}

func (s *stubService) ListAuthors(ctx context.Context) ([]model.AuthorSummary, error) {
	return s.authorsResp, s.authorsErr
}

func (s *stubService) GetAuthor(ctx context.Context, id int64) (*model.AuthorDetail, error) {
	s.gotAuthorID = id
	return s.authorResp, s.authorErr
}

func (s *stubService) ListAuthorSales(ctx context.Context, id int64) ([]model.AuthorSale, error) {
	s.gotAuthorID = id
	return s.salesResp, s.salesErr
}

func (s *stubService) ListAuthorWithdrawals(ctx context.Context, id int64) ([]model.Withdrawal, error) {
	s.gotAuthorID = id
	return s.withdrawalsResp, s.withdrawalsErr
}

func (s *stubService) RequestWithdrawal(ctx context.Context, authorID, amount int64) (*model.WithdrawalReceipt, error) {
	s.called = true
	s.gotAuthorID = authorID
	s.gotAmount = amount
	return s.receiptResp, s.withdrawErr
}

func newTestServer(t *testing.T, svc Service) *httptest.Server {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	ts := httptest.NewServer(NewHandler(svc, logger).SetupRouter())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(respBody)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	status, body := doRequest(t, ts, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestListAuthors(t *testing.T) {
	svc := &stubService{
		authorsResp: []model.AuthorSummary{
			{ID: 1, Name: "Priya Sharma", TotalEarnings: 3825, CurrentBalance: 3325},
			{ID: 4, Name: "No Books"},
		},
	}
	ts := newTestServer(t, svc)

	status, body := doRequest(t, ts, http.MethodGet, "/authors", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[
		{"id":1,"name":"Priya Sharma","total_earnings":3825,"current_balance":3325},
		{"id":4,"name":"No Books","total_earnings":0,"current_balance":0}
	]`, body)
}

func TestListAuthors_Empty(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	status, body := doRequest(t, ts, http.MethodGet, "/authors", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)
}

func TestListAuthors_InternalError(t *testing.T) {
	ts := newTestServer(t, &stubService{authorsErr: errors.New("select authors: connection refused")})

	status, body := doRequest(t, ts, http.MethodGet, "/authors", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, body)
}

func TestGetAuthor(t *testing.T) {
	svc := &stubService{
		authorResp: &model.AuthorDetail{
			ID:             1,
			Name:           "Priya Sharma",
			Email:          "priya@email.com",
			CurrentBalance: 3825,
			TotalEarnings:  3825,
			TotalBooks:     2,
			Books: []model.BookRoyalty{
				{ID: 1, Title: "The Silent River", RoyaltyPerSale: 45, TotalSold: 65, TotalRoyalty: 2925},
				{ID: 2, Title: "Midnight in Mumbai", RoyaltyPerSale: 60, TotalSold: 15, TotalRoyalty: 900},
			},
		},
	}
	ts := newTestServer(t, svc)

	status, body := doRequest(t, ts, http.MethodGet, "/authors/1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), svc.gotAuthorID)
	assert.JSONEq(t, `{
		"id":1,
		"name":"Priya Sharma",
		"email":"priya@email.com",
		"current_balance":3825,
		"total_earnings":3825,
		"total_books":2,
		"books":[
			{"id":1,"title":"The Silent River","royalty_per_sale":45,"total_sold":65,"total_royalty":2925},
			{"id":2,"title":"Midnight in Mumbai","royalty_per_sale":60,"total_sold":15,"total_royalty":900}
		]
	}`, body)
}

func TestAuthorRoutes_Errors(t *testing.T) {
	notFound := service.NotFound(service.MsgAuthorNotFound)

	tests := []struct {
		name   string
		path   string
		svc    *stubService
		status int
		body   string
	}{
		{
			name:   "detail invalid id",
			path:   "/authors/abc",
			svc:    &stubService{},
			status: http.StatusBadRequest,
			body:   `{"error":"Invalid author id"}`,
		},
		{
			name:   "sales invalid id",
			path:   "/authors/abc/sales",
			svc:    &stubService{},
			status: http.StatusBadRequest,
			body:   `{"error":"Invalid author id"}`,
		},
		{
			name:   "withdrawals invalid id",
			path:   "/authors/1x/withdrawals",
			svc:    &stubService{},
			status: http.StatusBadRequest,
			body:   `{"error":"Invalid author id"}`,
		},
		{
			name:   "detail unknown author",
			path:   "/authors/9999",
			svc:    &stubService{authorErr: notFound},
			status: http.StatusNotFound,
			body:   `{"error":"Author not found"}`,
		},
		{
			name:   "sales unknown author",
			path:   "/authors/9999/sales",
			svc:    &stubService{salesErr: notFound},
			status: http.StatusNotFound,
			body:   `{"error":"Author not found"}`,
		},
		{
			name:   "withdrawals unknown author",
			path:   "/authors/9999/withdrawals",
			svc:    &stubService{withdrawalsErr: notFound},
			status: http.StatusNotFound,
			body:   `{"error":"Author not found"}`,
		},
		{
			name:   "internal error is not leaked",
			path:   "/authors/1/sales",
			svc:    &stubService{salesErr: errors.New("select author sales: timeout")},
			status: http.StatusInternalServerError,
			body:   `{"error":"Internal server error"}`,
		},
		{
			name:   "unknown route",
			path:   "/books",
			svc:    &stubService{},
			status: http.StatusNotFound,
			body:   `{"error":"Not Found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)

			status, body := doRequest(t, ts, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, tt.body, body)
		})
	}
}

func TestListAuthorSales(t *testing.T) {
	svc := &stubService{
		salesResp: []model.AuthorSale{
			{BookTitle: "The Silent River", Quantity: 40, RoyaltyEarned: 1800, SaleDate: time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)},
			{BookTitle: "Midnight in Mumbai", Quantity: 15, RoyaltyEarned: 900, SaleDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)},
		},
	}
	ts := newTestServer(t, svc)

	status, body := doRequest(t, ts, http.MethodGet, "/authors/1/sales", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[
		{"book_title":"The Silent River","quantity":40,"royalty_earned":1800,"sale_date":"2025-01-12"},
		{"book_title":"Midnight in Mumbai","quantity":15,"royalty_earned":900,"sale_date":"2025-01-08"}
	]`, body)
}

func TestListAuthorWithdrawals(t *testing.T) {
	svc := &stubService{
		withdrawalsResp: []model.Withdrawal{
			{ID: 2, AuthorID: 1, Amount: 700, Status: model.WithdrawalStatusPending, CreatedAt: time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)},
		},
	}
	ts := newTestServer(t, svc)

	status, body := doRequest(t, ts, http.MethodGet, "/authors/1/withdrawals", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":2,"amount":700,"status":"pending","created_at":"2025-02-01T10:30:00.000Z"}]`, body)
}

func TestWithdraw_Created(t *testing.T) {
	svc := &stubService{
		receiptResp: &model.WithdrawalReceipt{
			Withdrawal: model.Withdrawal{
				ID:        7,
				AuthorID:  1,
				Amount:    500,
				Status:    model.WithdrawalStatusPending,
				CreatedAt: time.Date(2025, 2, 1, 10, 30, 0, 123000000, time.UTC),
			},
			NewBalance: 3325,
		},
	}
	ts := newTestServer(t, svc)

	status, body := doRequest(t, ts, http.MethodPost, "/withdrawals", `{"author_id":"1","amount":500}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(1), svc.gotAuthorID)
	assert.Equal(t, int64(500), svc.gotAmount)
	assert.JSONEq(t, `{
		"id":7,
		"author_id":1,
		"amount":500,
		"status":"pending",
		"created_at":"2025-02-01T10:30:00.123Z",
		"new_balance":3325
	}`, body)
}

func TestWithdraw_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *stubService
		status     int
		want       string
		reachesSvc bool
	}{
		{
			name:   "malformed json",
			body:   `{"author_id":`,
			svc:    &stubService{},
			status: http.StatusBadRequest,
			want:   `{"error":"Invalid request body"}`,
		},
		{
			name:   "missing author id",
			body:   `{"amount":500}`,
			svc:    &stubService{},
			status: http.StatusBadRequest,
			want:   `{"error":"author_id is required and must be a number"}`,
		},
		{
			name:   "non numeric author id",
			body:   `{"author_id":"abc","amount":500}`,
			svc:    &stubService{},
			status: http.StatusBadRequest,
			want:   `{"error":"author_id is required and must be a number"}`,
		},
		{
			name:   "author id checked before amount",
			body:   `{"author_id":null,"amount":"lots"}`,
			svc:    &stubService{},
			status: http.StatusBadRequest,
			want:   `{"error":"author_id is required and must be a number"}`,
		},
		{
			name:   "missing amount",
			body:   `{"author_id":1}`,
			svc:    &stubService{},
			status: http.StatusBadRequest,
			want:   `{"error":"amount is required and must be a positive number"}`,
		},
		{
			name:   "negative amount",
			body:   `{"author_id":1,"amount":-10}`,
			svc:    &stubService{},
			status: http.StatusBadRequest,
			want:   `{"error":"amount is required and must be a positive number"}`,
		},
		{
			name:       "below minimum",
			body:       `{"author_id":1,"amount":499}`,
			svc:        &stubService{withdrawErr: service.InvalidArgument("Minimum withdrawal is ₹%d", 500)},
			status:     http.StatusBadRequest,
			want:       `{"error":"Minimum withdrawal is ₹500"}`,
			reachesSvc: true,
		},
		{
			name:       "unknown author",
			body:       `{"author_id":9999,"amount":500}`,
			svc:        &stubService{withdrawErr: service.NotFound(service.MsgAuthorNotFound)},
			status:     http.StatusNotFound,
			want:       `{"error":"Author not found"}`,
			reachesSvc: true,
		},
		{
			name:       "exceeds balance",
			body:       `{"author_id":1,"amount":4000}`,
			svc:        &stubService{withdrawErr: service.InvalidArgument("Amount cannot exceed current balance (₹%d)", 3825)},
			status:     http.StatusBadRequest,
			want:       `{"error":"Amount cannot exceed current balance (₹3825)"}`,
			reachesSvc: true,
		},
		{
			name:       "storage failure",
			body:       `{"author_id":1,"amount":500}`,
			svc:        &stubService{withdrawErr: errors.New("commit tx: broken pipe")},
			status:     http.StatusInternalServerError,
			want:       `{"error":"Internal server error"}`,
			reachesSvc: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)

			status, body := doRequest(t, ts, http.MethodPost, "/withdrawals", tt.body)
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, tt.want, body)
			assert.Equal(t, tt.reachesSvc, tt.svc.called)
		})
	}
}

func TestWithdraw_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	status, _ := doRequest(t, ts, http.MethodGet, "/withdrawals", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}
