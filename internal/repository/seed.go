package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/bookleaf-royalties/internal/model"
)

// Dataset содержит начальные данные для пустой базы.
type Dataset struct {
	Authors []model.Author
	Books   []model.Book
	Sales   []model.Sale
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DemoDataset возвращает демонстрационных авторов, книги и продажи.
func DemoDataset() Dataset {
	return Dataset{
		Authors: []model.Author{
			{ID: 1, Name: "Priya Sharma", Email: "priya@email.com", BankAccount: "1234567890", IFSCCode: "HDFC0001234"},
			{ID: 2, Name: "Rahul Verma", Email: "rahul@email.com", BankAccount: "0987654321", IFSCCode: "ICIC0005678"},
			{ID: 3, Name: "Anita Desai", Email: "anita@email.com", BankAccount: "5678901234", IFSCCode: "SBIN0009012"},
		},
		Books: []model.Book{
			{ID: 1, Title: "The Silent River", AuthorID: 1, RoyaltyPerSale: 45},
			{ID: 2, Title: "Midnight in Mumbai", AuthorID: 1, RoyaltyPerSale: 60},
			{ID: 3, Title: "Code & Coffee", AuthorID: 2, RoyaltyPerSale: 75},
			{ID: 4, Title: "Startup Diaries", AuthorID: 2, RoyaltyPerSale: 50},
			{ID: 5, Title: "Poetry of Pain", AuthorID: 2, RoyaltyPerSale: 30},
			{ID: 6, Title: "Garden of Words", AuthorID: 3, RoyaltyPerSale: 40},
		},
		Sales: []model.Sale{
			{ID: 1, BookID: 1, Quantity: 25, SaleDate: date(2025, time.January, 5)},
			{ID: 2, BookID: 1, Quantity: 40, SaleDate: date(2025, time.January, 12)},
			{ID: 3, BookID: 2, Quantity: 15, SaleDate: date(2025, time.January, 8)},
			{ID: 4, BookID: 3, Quantity: 60, SaleDate: date(2025, time.January, 3)},
			{ID: 5, BookID: 3, Quantity: 45, SaleDate: date(2025, time.January, 15)},
			{ID: 6, BookID: 4, Quantity: 30, SaleDate: date(2025, time.January, 10)},
			{ID: 7, BookID: 5, Quantity: 20, SaleDate: date(2025, time.January, 18)},
			{ID: 8, BookID: 6, Quantity: 10, SaleDate: date(2025, time.January, 20)},
		},
	}
}

// SeedIfEmpty загружает набор данных, если в базе ещё нет ни одного автора.
// Возвращает true, если данные были загружены.
func (r *PostgresRepository) SeedIfEmpty(ctx context.Context, ds Dataset) (bool, error) {
	seeded := false

	err := r.WithinTx(ctx, func(s Store) error {
		tx := s.(*PostgresRepository)
		seeded = false

		if _, err := tx.q.Exec(ctx, `LOCK TABLE authors IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock authors: %w", err)
		}

		var count int64
		if err := tx.q.QueryRow(ctx, `SELECT COUNT(*) FROM authors`).Scan(&count); err != nil {
			return fmt.Errorf("count authors: %w", err)
		}
		if count > 0 {
			return nil
		}

		if err := tx.copyDataset(ctx, ds); err != nil {
			return err
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return seeded, nil
}

func (r *PostgresRepository) copyDataset(ctx context.Context, ds Dataset) error {
	_, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"authors"},
		[]string{"id", "name", "email", "bank_account", "ifsc_code"},
		pgx.CopyFromSlice(len(ds.Authors), func(i int) ([]any, error) {
			a := ds.Authors[i]
			return []any{a.ID, a.Name, a.Email, a.BankAccount, a.IFSCCode}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy authors: %w", err)
	}

	_, err = r.q.CopyFrom(ctx,
		pgx.Identifier{"books"},
		[]string{"id", "title", "author_id", "royalty_per_sale"},
		pgx.CopyFromSlice(len(ds.Books), func(i int) ([]any, error) {
			b := ds.Books[i]
			return []any{b.ID, b.Title, b.AuthorID, b.RoyaltyPerSale}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy books: %w", err)
	}

	_, err = r.q.CopyFrom(ctx,
		pgx.Identifier{"sales"},
		[]string{"book_id", "quantity", "sale_date"},
		pgx.CopyFromSlice(len(ds.Sales), func(i int) ([]any, error) {
			s := ds.Sales[i]
			return []any{s.BookID, s.Quantity, s.SaleDate}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy sales: %w", err)
	}

	// Идентификаторы авторов и книг заданы явно, поэтому сдвигаем последовательности.
	for _, table := range []string{"authors", "books"} {
		_, err := r.q.Exec(ctx,
			fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1)) FROM %[1]s`, table),
		)
		if err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}

	return nil
}
