// Package handler содержит HTTP-обработчики API сервиса роялти.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookleaf-royalties/internal/model"
	"github.com/mmeshcher/bookleaf-royalties/internal/service"
	"github.com/mmeshcher/bookleaf-royalties/internal/validation"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ListAuthors(ctx context.Context) ([]model.AuthorSummary, error)
	GetAuthor(ctx context.Context, id int64) (*model.AuthorDetail, error)
	ListAuthorSales(ctx context.Context, id int64) ([]model.AuthorSale, error)
	ListAuthorWithdrawals(ctx context.Context, id int64) ([]model.Withdrawal, error)
	RequestWithdrawal(ctx context.Context, authorID, amount int64) (*model.WithdrawalReceipt, error)
}

// Handler реализует HTTP-обработчики API сервиса роялти.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

type errorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleError переводит ошибку сервиса в HTTP-ответ. Внутренние ошибки только логируются.
func (h *Handler) handleError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	var reqErr *service.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case errors.Is(err, service.ErrNotFound):
			writeError(w, http.StatusNotFound, reqErr.Message)
			return
		case errors.Is(err, service.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, reqErr.Message)
			return
		}
	}

	h.logger.Error(msg, append(fields, zap.Error(err))...)
	writeError(w, http.StatusInternalServerError, service.MsgInternal)
}

func authorIDParam(r *http.Request) (int64, bool) {
	return validation.ParseID(chi.URLParam(r, "id"))
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authorSummaryResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TotalEarnings  int64  `json:"total_earnings"`
	CurrentBalance int64  `json:"current_balance"`
}

// ListAuthors возвращает всех авторов с заработком и текущим балансом.
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context())
	if err != nil {
		h.logger.Error("list authors error", zap.Error(err))
		success := false
		writeJSON(w, http.StatusInternalServerError, errorResponse{Success: &success, Error: service.MsgInternal})
		return
	}

	resp := make([]authorSummaryResponse, 0, len(authors))
	for _, a := range authors {
		resp = append(resp, authorSummaryResponse{
			ID:             a.ID,
			Name:           a.Name,
			TotalEarnings:  a.TotalEarnings,
			CurrentBalance: a.CurrentBalance,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type bookResponse struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	RoyaltyPerSale int64  `json:"royalty_per_sale"`
	TotalSold      int64  `json:"total_sold"`
	TotalRoyalty   int64  `json:"total_royalty"`
}

type authorDetailResponse struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	CurrentBalance int64          `json:"current_balance"`
	TotalEarnings  int64          `json:"total_earnings"`
	TotalBooks     int            `json:"total_books"`
	Books          []bookResponse `json:"books"`
}

// GetAuthor возвращает карточку автора с роялти по книгам.
func (h *Handler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := authorIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.MsgInvalidAuthorID)
		return
	}

	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "get author error", zap.Int64("authorID", id))
		return
	}

	books := make([]bookResponse, 0, len(author.Books))
	for _, b := range author.Books {
		books = append(books, bookResponse{
			ID:             b.ID,
			Title:          b.Title,
			RoyaltyPerSale: b.RoyaltyPerSale,
			TotalSold:      b.TotalSold,
			TotalRoyalty:   b.TotalRoyalty,
		})
	}

	writeJSON(w, http.StatusOK, authorDetailResponse{
		ID:             author.ID,
		Name:           author.Name,
		Email:          author.Email,
		CurrentBalance: author.CurrentBalance,
		TotalEarnings:  author.TotalEarnings,
		TotalBooks:     author.TotalBooks,
		Books:          books,
	})
}

type saleResponse struct {
	BookTitle     string `json:"book_title"`
	Quantity      int64  `json:"quantity"`
	RoyaltyEarned int64  `json:"royalty_earned"`
	SaleDate      string `json:"sale_date"`
}

// ListAuthorSales возвращает продажи книг автора, начиная с самых свежих.
func (h *Handler) ListAuthorSales(w http.ResponseWriter, r *http.Request) {
	id, ok := authorIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.MsgInvalidAuthorID)
		return
	}

	sales, err := h.service.ListAuthorSales(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "list author sales error", zap.Int64("authorID", id))
		return
	}

	resp := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, saleResponse{
			BookTitle:     s.BookTitle,
			Quantity:      s.Quantity,
			RoyaltyEarned: s.RoyaltyEarned,
			SaleDate:      s.SaleDate.UTC().Format(time.DateOnly),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type withdrawalResponse struct {
	ID        int64  `json:"id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ListAuthorWithdrawals возвращает историю выводов автора.
func (h *Handler) ListAuthorWithdrawals(w http.ResponseWriter, r *http.Request) {
	id, ok := authorIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.MsgInvalidAuthorID)
		return
	}

	withdrawals, err := h.service.ListAuthorWithdrawals(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "list author withdrawals error", zap.Int64("authorID", id))
		return
	}

	resp := make([]withdrawalResponse, 0, len(withdrawals))
	for _, wth := range withdrawals {
		resp = append(resp, withdrawalResponse{
			ID:        wth.ID,
			Amount:    wth.Amount,
			Status:    string(wth.Status),
			CreatedAt: wth.CreatedAt.UTC().Format(timestampLayout),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type withdrawRequest struct {
	AuthorID any `json:"author_id"`
	Amount   any `json:"amount"`
}

type withdrawalReceiptResponse struct {
	ID         int64  `json:"id"`
	AuthorID   int64  `json:"author_id"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	NewBalance int64  `json:"new_balance"`
}

// Withdraw создаёт запрос на вывод роялти.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, service.MsgInvalidBody)
		return
	}

	authorID, ok := validation.ParseAuthorID(req.AuthorID)
	if !ok {
		writeError(w, http.StatusBadRequest, service.MsgAuthorIDRequired)
		return
	}

	amount, ok := validation.ParseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, service.MsgAmountRequired)
		return
	}

	receipt, err := h.service.RequestWithdrawal(r.Context(), authorID, amount)
	if err != nil {
		h.handleError(w, err, "withdraw error", zap.Int64("authorID", authorID), zap.Int64("amount", amount))
		return
	}

	writeJSON(w, http.StatusCreated, withdrawalReceiptResponse{
		ID:         receipt.ID,
		AuthorID:   receipt.AuthorID,
		Amount:     receipt.Amount,
		Status:     string(receipt.Status),
		CreatedAt:  receipt.CreatedAt.UTC().Format(timestampLayout),
		NewBalance: receipt.NewBalance,
	})
}
