package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument означает некорректные или не прошедшие проверку входные данные.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound означает, что запрошенный автор не существует.
	ErrNotFound = errors.New("not found")
)

// Сообщения об ошибках, которые возвращаются клиенту как есть.
const (
	MsgInvalidAuthorID   = "Invalid author id"
	MsgAuthorNotFound    = "Author not found"
	MsgAuthorIDRequired  = "author_id is required and must be a number"
	MsgAmountRequired    = "amount is required and must be a positive number"
	MsgInvalidBody       = "Invalid request body"
	MsgInternal          = "Internal server error"
	msgMinimumWithdrawal = "Minimum withdrawal is ₹%d"
	msgExceedsBalance    = "Amount cannot exceed current balance (₹%d)"
)

// RequestError содержит сообщение для клиента и категорию ошибки.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

// InvalidArgument создаёт ошибку категории ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return &RequestError{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound создаёт ошибку категории ErrNotFound.
func NotFound(message string) error {
	return &RequestError{Kind: ErrNotFound, Message: message}
}
