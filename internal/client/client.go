// Package client предоставляет HTTP-клиент API сервиса роялти.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с API сервиса роялти.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError описывает ответ сервиса с кодом ошибки.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// AuthorSummary — элемент списка авторов.
type AuthorSummary struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TotalEarnings  int64  `json:"total_earnings"`
	CurrentBalance int64  `json:"current_balance"`
}

// Book — роялти по одной книге в карточке автора.
type Book struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	RoyaltyPerSale int64  `json:"royalty_per_sale"`
	TotalSold      int64  `json:"total_sold"`
	TotalRoyalty   int64  `json:"total_royalty"`
}

// AuthorDetail — карточка автора.
type AuthorDetail struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	CurrentBalance int64  `json:"current_balance"`
	TotalEarnings  int64  `json:"total_earnings"`
	TotalBooks     int    `json:"total_books"`
	Books          []Book `json:"books"`
}

// Sale — продажа книги автора.
type Sale struct {
	BookTitle     string `json:"book_title"`
	Quantity      int64  `json:"quantity"`
	RoyaltyEarned int64  `json:"royalty_earned"`
	SaleDate      string `json:"sale_date"`
}

// Withdrawal — запись истории выводов.
type Withdrawal struct {
	ID        int64  `json:"id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// WithdrawalReceipt — ответ на создание вывода.
type WithdrawalReceipt struct {
	ID         int64  `json:"id"`
	AuthorID   int64  `json:"author_id"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	NewBalance int64  `json:"new_balance"`
}

// NewClient создаёт клиент для сервиса по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListAuthors запрашивает список авторов.
func (c *Client) ListAuthors(ctx context.Context) ([]AuthorSummary, error) {
	var res []AuthorSummary
	if err := c.do(ctx, http.MethodGet, "/authors", nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetAuthor запрашивает карточку автора.
func (c *Client) GetAuthor(ctx context.Context, id int64) (*AuthorDetail, error) {
	var res AuthorDetail
	if err := c.do(ctx, http.MethodGet, "/authors/"+strconv.FormatInt(id, 10), nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthorSales запрашивает продажи автора.
func (c *Client) AuthorSales(ctx context.Context, id int64) ([]Sale, error) {
	var res []Sale
	if err := c.do(ctx, http.MethodGet, "/authors/"+strconv.FormatInt(id, 10)+"/sales", nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// AuthorWithdrawals запрашивает историю выводов автора.
func (c *Client) AuthorWithdrawals(ctx context.Context, id int64) ([]Withdrawal, error) {
	var res []Withdrawal
	if err := c.do(ctx, http.MethodGet, "/authors/"+strconv.FormatInt(id, 10)+"/withdrawals", nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Withdraw создаёт запрос на вывод средств автора.
func (c *Client) Withdraw(ctx context.Context, authorID, amount int64) (*WithdrawalReceipt, error) {
	body := map[string]int64{"author_id": authorID, "amount": amount}

	var res WithdrawalReceipt
	if err := c.do(ctx, http.MethodPost, "/withdrawals", body, http.StatusCreated, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var errResp struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr != nil || errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
