package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmeshcher/bookleaf-royalties/internal/model"
	"github.com/mmeshcher/bookleaf-royalties/internal/repository"
	"github.com/mmeshcher/bookleaf-royalties/internal/royalty"
)

var (
	withdrawalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookleaf_withdrawal_requests_total",
			Help: "Total number of withdrawal requests by outcome",
		},
		[]string{"outcome"},
	)

	withdrawnAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookleaf_withdrawn_amount_total",
		Help: "Sum of all accepted withdrawal amounts",
	})
)

// RequestWithdrawal проверяет сумму и баланс автора и создаёт запрос на вывод в статусе pending.
// Проверка баланса и запись выполняются в одной транзакции под блокировкой строки автора.
func (s *Service) RequestWithdrawal(ctx context.Context, authorID, amount int64) (*model.WithdrawalReceipt, error) {
	receipt, err := s.requestWithdrawal(ctx, authorID, amount)
	withdrawalRequests.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	withdrawnAmount.Add(float64(amount))
	return receipt, nil
}

func (s *Service) requestWithdrawal(ctx context.Context, authorID, amount int64) (*model.WithdrawalReceipt, error) {
	if amount < 0 {
		return nil, InvalidArgument(MsgAmountRequired)
	}
	if amount < MinWithdrawal {
		return nil, InvalidArgument(msgMinimumWithdrawal, MinWithdrawal)
	}

	var receipt *model.WithdrawalReceipt

	err := s.repo.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.LockAuthor(ctx, authorID); err != nil {
			return err
		}

		books, err := tx.BooksForAuthor(ctx, authorID)
		if err != nil {
			return err
		}
		sales, err := tx.SalesForAuthor(ctx, authorID)
		if err != nil {
			return err
		}
		withdrawals, err := tx.WithdrawalsForAuthor(ctx, authorID)
		if err != nil {
			return err
		}

		balance := royalty.Compute(books, sales, withdrawals).Balance()
		if amount > balance {
			return InvalidArgument(msgExceedsBalance, balance)
		}

		w, err := tx.CreateWithdrawal(ctx, model.Withdrawal{
			AuthorID:  authorID,
			Amount:    amount,
			Status:    model.WithdrawalStatusPending,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}

		receipt = &model.WithdrawalReceipt{
			Withdrawal: w,
			NewBalance: balance - amount,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAuthorNotFound) {
			return nil, NotFound(MsgAuthorNotFound)
		}
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return nil, err
		}
		return nil, fmt.Errorf("create withdrawal for author %d: %w", authorID, err)
	}

	return receipt, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrInvalidArgument):
		return "rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
