package loans

import (
	"context"
	"database/sql"
	"time"

	"biblio-backend/internal/library/books"
	"biblio-backend/internal/library/members"
	"biblio-backend/internal/library/penalties"
	"biblio-backend/internal/library/reservations"
	"biblio-backend/internal/platform/db"
)

// Tx は貸出・返却1回分のトランザクション内で使える操作。
// 見つからない行は sql.ErrNoRows で返す。
type Tx interface {
	LockBook(ctx context.Context, id int64) (*books.Book, error)
	LockMember(ctx context.Context, id int64) (*members.Member, error)
	CountInProgress(ctx context.Context, memberID int64) (int, error)
	InsertLoan(ctx context.Context, l *Loan) (int64, error)
	DecrementBook(ctx context.Context, bookID int64) error
	IncrementBook(ctx context.Context, bookID int64) error
	FindInProgressByISBN(ctx context.Context, isbn string) (*Loan, error)
	InsertPenalty(ctx context.Context, p *penalties.Penalty) (int64, error)
	MarkReturned(ctx context.Context, loanID int64, at time.Time) error
	LockLoan(ctx context.Context, id int64) (*Loan, error)
	ExtendDue(ctx context.Context, loanID int64, due time.Time) error
}

type Repository interface {
	// InTx: fn が nil を返せば commit、それ以外は rollback
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	List(ctx context.Context, p Page) ([]LoanView, int64, error)
	ListOpen(ctx context.Context) ([]LoanView, error)
	ListOverdue(ctx context.Context, now time.Time) ([]LoanView, error)
	ListByMember(ctx context.Context, memberID int64) ([]LoanView, error)
	Get(ctx context.Context, id int64) (*LoanView, error)
	FirstWaiting(ctx context.Context, bookID int64) (*reservations.Reservation, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &sqlTx{q: q})
	})
}

const selectLoanView = `
SELECT l.id, l.loan_ulid, l.loan_date, l.due_date, l.returned_at, l.status,
       l.book_id, b.isbn, b.title,
       l.member_id, CONCAT(m.first_name, ' ', m.last_name),
       l.librarian_id, COALESCE(CONCAT(li.first_name, ' ', li.last_name), '')
FROM loans l
JOIN books b ON b.id = l.book_id
JOIN members m ON m.id = l.member_id
LEFT JOIN librarians li ON li.id = l.librarian_id`

func scanLoanView(sc interface{ Scan(...any) error }) (*LoanView, error) {
	var (
		v          LoanView
		returnedAt sql.NullTime
	)
	err := sc.Scan(&v.ID, &v.ULID, &v.LoanDate, &v.DueDate, &returnedAt, &v.Status,
		&v.BookID, &v.ISBN, &v.BookTitle, &v.MemberID, &v.MemberName, &v.LibrarianID, &v.LibrarianName)
	if err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		v.ReturnedAt = &t
	}
	return &v, nil
}

func (s *Store) queryViews(ctx context.Context, q string, args ...any) ([]LoanView, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LoanView{}
	for rows.Next() {
		v, err := scanLoanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, p Page) ([]LoanView, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := s.queryViews(ctx, selectLoanView+` ORDER BY l.loan_date DESC, l.id DESC LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListOpen: IN_PROGRESS と旧 LATE を返却予定日順に
func (s *Store) ListOpen(ctx context.Context) ([]LoanView, error) {
	return s.queryViews(ctx, selectLoanView+` WHERE l.status IN ('IN_PROGRESS', 'LATE') ORDER BY l.due_date, l.id`)
}

func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]LoanView, error) {
	return s.queryViews(ctx, selectLoanView+` WHERE l.status = 'IN_PROGRESS' AND l.due_date < ? ORDER BY l.due_date, l.id`, now)
}

func (s *Store) ListByMember(ctx context.Context, memberID int64) ([]LoanView, error) {
	return s.queryViews(ctx, selectLoanView+` WHERE l.member_id = ? ORDER BY l.loan_date DESC, l.id DESC`, memberID)
}

func (s *Store) Get(ctx context.Context, id int64) (*LoanView, error) {
	return scanLoanView(s.db.QueryRowContext(ctx, selectLoanView+` WHERE l.id = ?`, id))
}

func (s *Store) FirstWaiting(ctx context.Context, bookID int64) (*reservations.Reservation, error) {
	return reservations.FirstWaiting(ctx, s.db, bookID)
}

// ===== sqlTx =====

type sqlTx struct{ q db.DBTX }

func (t *sqlTx) LockBook(ctx context.Context, id int64) (*books.Book, error) {
	return books.LockByID(ctx, t.q, id)
}

// 会員行もロックして、同一会員の並行貸出で上限の数え漏れが起きないようにする
func (t *sqlTx) LockMember(ctx context.Context, id int64) (*members.Member, error) {
	var m members.Member
	err := t.q.QueryRowContext(ctx, `SELECT id, member_type, status FROM members WHERE id = ? FOR UPDATE`, id).
		Scan(&m.ID, &m.Type, &m.Status)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *sqlTx) CountInProgress(ctx context.Context, memberID int64) (int, error) {
	return members.CountActiveLoans(ctx, t.q, memberID)
}

func (t *sqlTx) InsertLoan(ctx context.Context, l *Loan) (int64, error) {
	const q = `
	INSERT INTO loans (loan_ulid, loan_date, due_date, status, book_id, member_id, librarian_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := t.q.ExecContext(ctx, q, l.ULID, l.LoanDate, l.DueDate, l.Status, l.BookID, l.MemberID, l.LibrarianID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *sqlTx) DecrementBook(ctx context.Context, bookID int64) error {
	return books.Decrement(ctx, t.q, bookID)
}

func (t *sqlTx) IncrementBook(ctx context.Context, bookID int64) error {
	return books.Increment(ctx, t.q, bookID)
}

const selectLoan = `SELECT l.id, l.loan_ulid, l.loan_date, l.due_date, l.status, l.book_id, l.member_id, l.librarian_id FROM loans l`

func scanLoan(row *sql.Row) (*Loan, error) {
	var l Loan
	if err := row.Scan(&l.ID, &l.ULID, &l.LoanDate, &l.DueDate, &l.Status, &l.BookID, &l.MemberID, &l.LibrarianID); err != nil {
		return nil, err
	}
	return &l, nil
}

// 同じISBNで複数貸出中なら一番古いものから返す
func (t *sqlTx) FindInProgressByISBN(ctx context.Context, isbn string) (*Loan, error) {
	return scanLoan(t.q.QueryRowContext(ctx, selectLoan+`
	JOIN books b ON b.id = l.book_id
	WHERE b.isbn = ? AND l.status = 'IN_PROGRESS'
	ORDER BY l.loan_date, l.id
	LIMIT 1
	FOR UPDATE`, isbn))
}

func (t *sqlTx) InsertPenalty(ctx context.Context, p *penalties.Penalty) (int64, error) {
	return penalties.Insert(ctx, t.q, p)
}

func (t *sqlTx) MarkReturned(ctx context.Context, loanID int64, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE loans SET status = 'RETURNED', returned_at = ? WHERE id = ? AND status = 'IN_PROGRESS'`, at, loanID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *sqlTx) LockLoan(ctx context.Context, id int64) (*Loan, error) {
	return scanLoan(t.q.QueryRowContext(ctx, selectLoan+` WHERE l.id = ? FOR UPDATE`, id))
}

func (t *sqlTx) ExtendDue(ctx context.Context, loanID int64, due time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE loans SET due_date = ? WHERE id = ? AND status = 'IN_PROGRESS'`, due, loanID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}
