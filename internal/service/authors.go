package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/bookleaf-royalties/internal/model"
	"github.com/mmeshcher/bookleaf-royalties/internal/repository"
	"github.com/mmeshcher/bookleaf-royalties/internal/royalty"
)

// ListAuthors возвращает всех авторов с заработком и балансом, посчитанными за один проход.
func (s *Service) ListAuthors(ctx context.Context) ([]model.AuthorSummary, error) {
	authors, err := s.repo.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.repo.ListWithdrawals(ctx)
	if err != nil {
		return nil, err
	}

	totals := royalty.ByAuthor(books, sales, withdrawals)

	res := make([]model.AuthorSummary, 0, len(authors))
	for _, a := range authors {
		t := totals[a.ID]
		res = append(res, model.AuthorSummary{
			ID:             a.ID,
			Name:           a.Name,
			TotalEarnings:  t.Earnings,
			CurrentBalance: t.Balance(),
		})
	}

	return res, nil
}

// GetAuthor возвращает карточку автора с роялти по каждой книге.
func (s *Service) GetAuthor(ctx context.Context, id int64) (*model.AuthorDetail, error) {
	author, err := s.getAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	books, err := s.repo.BooksForAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.SalesForAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.repo.WithdrawalsForAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	perBook := royalty.PerBook(books, sales)
	totals := royalty.Compute(books, sales, withdrawals)

	return &model.AuthorDetail{
		ID:             author.ID,
		Name:           author.Name,
		Email:          author.Email,
		CurrentBalance: totals.Balance(),
		TotalEarnings:  totals.Earnings,
		TotalBooks:     len(books),
		Books:          perBook,
	}, nil
}

// ListAuthorSales возвращает продажи книг автора, начиная с самых свежих.
func (s *Service) ListAuthorSales(ctx context.Context, id int64) ([]model.AuthorSale, error) {
	if _, err := s.getAuthor(ctx, id); err != nil {
		return nil, err
	}

	books, err := s.repo.BooksForAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.SalesForAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	bookMap := make(map[int64]model.Book, len(books))
	for _, b := range books {
		bookMap[b.ID] = b
	}

	res := make([]model.AuthorSale, 0, len(sales))
	for _, sale := range sales {
		b, ok := bookMap[sale.BookID]
		if !ok {
			continue
		}
		res = append(res, model.AuthorSale{
			BookTitle:     b.Title,
			Quantity:      sale.Quantity,
			RoyaltyEarned: sale.Quantity * b.RoyaltyPerSale,
			SaleDate:      sale.SaleDate,
		})
	}

	return res, nil
}

// ListAuthorWithdrawals возвращает историю выводов автора, начиная с самых новых.
func (s *Service) ListAuthorWithdrawals(ctx context.Context, id int64) ([]model.Withdrawal, error) {
	if _, err := s.getAuthor(ctx, id); err != nil {
		return nil, err
	}

	withdrawals, err := s.repo.WithdrawalsForAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawals == nil {
		withdrawals = []model.Withdrawal{}
	}
	return withdrawals, nil
}

func (s *Service) getAuthor(ctx context.Context, id int64) (*model.Author, error) {
	author, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAuthorNotFound) {
			return nil, NotFound(MsgAuthorNotFound)
		}
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return author, nil
}
