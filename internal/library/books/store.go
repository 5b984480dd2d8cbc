package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"biblio-backend/internal/platform/apierr"
	"biblio-backend/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, p Page) ([]Book, int64, error)
	ListAvailable(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int64) (*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	Search(ctx context.Context, keyword string) ([]Book, error)
	Create(ctx context.Context, b *Book) (int64, error)
	Update(ctx context.Context, b *Book, available *int) error
	DeleteIfNoActiveLoans(ctx context.Context, id int64) error
	AdjustAvailable(ctx context.Context, id int64, delta int) error
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const selectBook = `
SELECT b.id, b.isbn, b.title, b.author, b.total_copies, b.available_copies, b.category_id, COALESCE(c.name, '')
FROM books b
LEFT JOIN categories c ON c.id = b.category_id`

func scanBook(sc interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	if err := sc.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies, &b.CategoryID, &b.CategoryName); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) queryBooks(ctx context.Context, q string, args ...any) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, p Page) ([]Book, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := s.queryBooks(ctx, selectBook+` ORDER BY b.title, b.id LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) ListAvailable(ctx context.Context) ([]Book, error) {
	return s.queryBooks(ctx, selectBook+` WHERE b.available_copies > 0 ORDER BY b.title, b.id`)
}

func (s *Store) Get(ctx context.Context, id int64) (*Book, error) {
	return scanBook(s.db.QueryRowContext(ctx, selectBook+` WHERE b.id = ?`, id))
}

func (s *Store) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	return scanBook(s.db.QueryRowContext(ctx, selectBook+` WHERE b.isbn = ?`, isbn))
}

func (s *Store) Search(ctx context.Context, keyword string) ([]Book, error) {
	p := likePattern(keyword)
	return s.queryBooks(ctx,
		selectBook+` WHERE LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR LOWER(b.isbn) LIKE ? ORDER BY b.title, b.id`,
		p, p, p)
}

func (s *Store) Create(ctx context.Context, b *Book) (int64, error) {
	const q = `
	INSERT INTO books (isbn, title, author, total_copies, available_copies, category_id)
	VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, b.ISBN, b.Title, b.Author, b.TotalCopies, b.AvailableCopies, b.CategoryID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update は書籍行をロックし、貸出中の冊数を見てから在庫数を決める。
// available が nil なら保存済みの在庫数に total の増減分だけ足す。
func (s *Store) Update(ctx context.Context, b *Book, available *int) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := LockByID(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		active, err := countActiveLoans(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if b.AvailableCopies, err = resolveAvailable(cur, b.TotalCopies, active, available); err != nil {
			return err
		}
		const q = `
		UPDATE books
		SET isbn = ?, title = ?, author = ?, total_copies = ?, available_copies = ?, category_id = ?
		WHERE id = ?`
		_, err = tx.ExecContext(ctx, q, b.ISBN, b.Title, b.Author, b.TotalCopies, b.AvailableCopies, b.CategoryID, b.ID)
		return err
	})
}

// resolveAvailable: 在庫数は 0 以上 total - 貸出中 以下
func resolveAvailable(cur *Book, total, active int, available *int) (int, error) {
	if total < active {
		return 0, apierr.Invalid(fmt.Sprintf("total_copies cannot be below the %d copies on loan", active))
	}
	free := total - active
	if available != nil {
		if *available > free {
			return 0, apierr.Invalid(fmt.Sprintf("available_copies must be <= %d (%d copies on loan)", free, active))
		}
		return *available, nil
	}
	n := cur.AvailableCopies + total - cur.TotalCopies
	return min(max(n, 0), free), nil
}

func countActiveLoans(ctx context.Context, q db.DBTX, bookID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND status = 'IN_PROGRESS'`, bookID).Scan(&n)
	return n, err
}

// DeleteIfNoActiveLoans: 書籍行をロックしてから貸出中件数を確認する
func (s *Store) DeleteIfNoActiveLoans(ctx context.Context, id int64) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := LockByID(ctx, tx, id); err != nil {
			return err
		}
		n, err := countActiveLoans(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apierr.HasActiveLoans("book")
		}
		unpaid, err := countUnpaidPenalties(ctx, tx, id)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return apierr.Conflict("book has unpaid penalties")
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		return err
	})
}

// 書籍を消すと貸出履歴ごと罰金も消えるため、未払いがあれば削除しない
func countUnpaidPenalties(ctx context.Context, q db.DBTX, bookID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM penalties p
	JOIN loans l ON l.id = p.loan_id
	WHERE l.book_id = ? AND p.status = 'UNPAID'`, bookID).Scan(&n)
	return n, err
}

func (s *Store) AdjustAvailable(ctx context.Context, id int64, delta int) error {
	if delta < 0 {
		return Decrement(ctx, s.db, id)
	}
	return Increment(ctx, s.db, id)
}

// ===== tx 内から使うヘルパー (loans からも呼ぶ) =====

// LockByID は SELECT ... FOR UPDATE。存在しなければ sql.ErrNoRows。
func LockByID(ctx context.Context, q db.DBTX, id int64) (*Book, error) {
	const stmt = `
	SELECT id, isbn, title, author, total_copies, available_copies, category_id, ''
	FROM books WHERE id = ? FOR UPDATE`
	return scanBook(q.QueryRowContext(ctx, stmt, id))
}

// Decrement は貸出時の在庫 -1。0 冊なら更新されず Unavailable。
func Decrement(ctx context.Context, q db.DBTX, id int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1 WHERE id = ? AND available_copies > 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apierr.Unavailable("book")
	}
	return nil
}

// Increment は返却時の在庫 +1。total を超える場合は Conflict。
func Increment(ctx context.Context, q db.DBTX, id int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1 WHERE id = ? AND available_copies < total_copies`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apierr.Conflict("book already has all copies available")
	}
	return nil
}

func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(keyword)) + "%"
}
