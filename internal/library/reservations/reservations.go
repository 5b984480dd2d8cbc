// Package reservations は予約キューの参照のみ。キューを進める処理は持たない。
package reservations

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"biblio-backend/internal/platform/apierr"
	"biblio-backend/internal/platform/db"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusNotified Status = "NOTIFIED"
)

type Reservation struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	MemberName  string    `json:"member_name"`
	MemberEmail string    `json:"member_email"`
	BookID      int64     `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	Position    int       `json:"position"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Filter struct {
	BookID *int64
	Status *Status
}

const selectReservation = `
SELECT r.id, r.member_id, CONCAT(m.first_name, ' ', m.last_name), m.email,
       r.book_id, b.title, r.position, r.status, r.created_at
FROM reservations r
JOIN members m ON m.id = r.member_id
JOIN books b ON b.id = r.book_id`

func scanReservation(sc interface{ Scan(...any) error }) (*Reservation, error) {
	var r Reservation
	err := sc.Scan(&r.ID, &r.MemberID, &r.MemberName, &r.MemberEmail, &r.BookID, &r.BookTitle, &r.Position, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List: book_id, position 順
func List(ctx context.Context, q db.DBTX, f Filter) ([]Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.BookID != nil {
		where = append(where, "r.book_id = ?")
		args = append(args, *f.BookID)
	}
	if f.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, string(*f.Status))
	}
	stmt := selectReservation
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY r.book_id, r.position"

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// FirstWaiting returns the head of the WAITING queue for a book, or nil.
func FirstWaiting(ctx context.Context, q db.DBTX, bookID int64) (*Reservation, error) {
	r, err := scanReservation(q.QueryRowContext(ctx,
		selectReservation+` WHERE r.book_id = ? AND r.status = 'WAITING' ORDER BY r.position LIMIT 1`, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// ===== Service =====

type Service struct{ db *sql.DB }

func NewService(db *sql.DB) *Service { return &Service{db: db} }

func (s *Service) List(ctx context.Context, f Filter) ([]Reservation, error) {
	if f.Status != nil && *f.Status != StatusWaiting && *f.Status != StatusNotified {
		return nil, apierr.Invalid("status must be WAITING or NOTIFIED")
	}
	return List(ctx, s.db, f)
}

func (s *Service) FirstWaiting(ctx context.Context, bookID int64) (*Reservation, error) {
	return FirstWaiting(ctx, s.db, bookID)
}
