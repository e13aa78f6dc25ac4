// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/bookleaf-royalties/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrAuthorNotFound возвращается, если автор с указанным идентификатором не найден.
var ErrAuthorNotFound = errors.New("author not found")

// Store описывает операции чтения и записи, доступные как на пуле, так и внутри транзакции.
type Store interface {
	ListAuthors(ctx context.Context) ([]model.Author, error)
	GetAuthor(ctx context.Context, id int64) (*model.Author, error)
	LockAuthor(ctx context.Context, id int64) error
	ListBooks(ctx context.Context) ([]model.Book, error)
	BooksForAuthor(ctx context.Context, authorID int64) ([]model.Book, error)
	ListSales(ctx context.Context) ([]model.Sale, error)
	SalesForAuthor(ctx context.Context, authorID int64) ([]model.Sale, error)
	ListWithdrawals(ctx context.Context) ([]model.Withdrawal, error)
	WithdrawalsForAuthor(ctx context.Context, authorID int64) ([]model.Withdrawal, error)
	CreateWithdrawal(ctx context.Context, w model.Withdrawal) (model.Withdrawal, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, q: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// WithinTx выполняет fn в транзакции. При конфликте сериализации или взаимной блокировке
// транзакция повторяется с экспоненциальной задержкой. Ошибка фиксации не повторяется:
// после неё неизвестно, применила ли база транзакцию.
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(Store) error) error {
	return withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(&PostgresRepository{pool: r.pool, q: tx}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
}

func withRetry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, 3), ctx))
}

// isRetryable разрешает повтор только для ошибок, после которых PostgreSQL гарантированно
// откатил транзакцию. Обрыв соединения к ним не относится.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return false
}

// ListAuthors возвращает всех авторов в порядке возрастания идентификатора.
func (r *PostgresRepository) ListAuthors(ctx context.Context) ([]model.Author, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, email, bank_account, ifsc_code FROM authors ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select authors: %w", err)
	}

	authors, err := pgx.CollectRows(rows, scanAuthor)
	if err != nil {
		return nil, fmt.Errorf("scan authors: %w", err)
	}
	return authors, nil
}

// GetAuthor возвращает автора по идентификатору.
func (r *PostgresRepository) GetAuthor(ctx context.Context, id int64) (*model.Author, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, email, bank_account, ifsc_code FROM authors WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select author: %w", err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAuthor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("get author: %w", err)
	}
	return &a, nil
}

// LockAuthor блокирует строку автора до конца транзакции, сериализуя списания одного автора.
func (r *PostgresRepository) LockAuthor(ctx context.Context, id int64) error {
	var dummy int64
	err := r.q.QueryRow(ctx, `SELECT id FROM authors WHERE id = $1 FOR UPDATE`, id).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAuthorNotFound
		}
		return fmt.Errorf("lock author for update: %w", err)
	}
	return nil
}

// ListBooks возвращает все книги.
func (r *PostgresRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, title, author_id, royalty_per_sale FROM books ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}

	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("scan books: %w", err)
	}
	return books, nil
}

// BooksForAuthor возвращает книги автора.
func (r *PostgresRepository) BooksForAuthor(ctx context.Context, authorID int64) ([]model.Book, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, title, author_id, royalty_per_sale
		 FROM books
		 WHERE author_id = $1
		 ORDER BY id`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("select author books: %w", err)
	}

	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("scan books: %w", err)
	}
	return books, nil
}

// ListSales возвращает все продажи.
func (r *PostgresRepository) ListSales(ctx context.Context) ([]model.Sale, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, book_id, quantity, sale_date FROM sales ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}

	sales, err := pgx.CollectRows(rows, scanSale)
	if err != nil {
		return nil, fmt.Errorf("scan sales: %w", err)
	}
	return sales, nil
}

// SalesForAuthor возвращает продажи книг автора, начиная с самых свежих.
func (r *PostgresRepository) SalesForAuthor(ctx context.Context, authorID int64) ([]model.Sale, error) {
	rows, err := r.q.Query(ctx,
		`SELECT s.id, s.book_id, s.quantity, s.sale_date
		 FROM sales s
		 JOIN books b ON b.id = s.book_id
		 WHERE b.author_id = $1
		 ORDER BY s.sale_date DESC, s.id`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("select author sales: %w", err)
	}

	sales, err := pgx.CollectRows(rows, scanSale)
	if err != nil {
		return nil, fmt.Errorf("scan sales: %w", err)
	}
	return sales, nil
}

// ListWithdrawals возвращает все выводы средств.
func (r *PostgresRepository) ListWithdrawals(ctx context.Context) ([]model.Withdrawal, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, author_id, amount, status, created_at FROM withdrawals ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select withdrawals: %w", err)
	}

	res, err := pgx.CollectRows(rows, scanWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("scan withdrawals: %w", err)
	}
	return res, nil
}

// WithdrawalsForAuthor возвращает историю выводов автора, начиная с самых новых.
func (r *PostgresRepository) WithdrawalsForAuthor(ctx context.Context, authorID int64) ([]model.Withdrawal, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, author_id, amount, status, created_at
		 FROM withdrawals
		 WHERE author_id = $1
		 ORDER BY created_at DESC, id DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("select author withdrawals: %w", err)
	}

	res, err := pgx.CollectRows(rows, scanWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("scan withdrawals: %w", err)
	}
	return res, nil
}

// CreateWithdrawal сохраняет запрос на вывод и возвращает его с присвоенным идентификатором.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, w model.Withdrawal) (model.Withdrawal, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO withdrawals (author_id, amount, status, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		w.AuthorID, w.Amount, string(w.Status), w.CreatedAt,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return model.Withdrawal{}, ErrAuthorNotFound
		}
		return model.Withdrawal{}, fmt.Errorf("insert withdrawal: %w", err)
	}
	return w, nil
}

func scanAuthor(row pgx.CollectableRow) (model.Author, error) {
	var a model.Author
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.BankAccount, &a.IFSCCode)
	return a, err
}

func scanBook(row pgx.CollectableRow) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.AuthorID, &b.RoyaltyPerSale)
	return b, err
}

func scanSale(row pgx.CollectableRow) (model.Sale, error) {
	var s model.Sale
	err := row.Scan(&s.ID, &s.BookID, &s.Quantity, &s.SaleDate)
	return s, err
}

func scanWithdrawal(row pgx.CollectableRow) (model.Withdrawal, error) {
	var (
		w      model.Withdrawal
		status string
	)
	if err := row.Scan(&w.ID, &w.AuthorID, &w.Amount, &status, &w.CreatedAt); err != nil {
		return w, err
	}
	w.Status = model.WithdrawalStatus(status)
	return w, nil
}
