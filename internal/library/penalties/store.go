package penalties

import (
	"context"
	"database/sql"
	"time"

	"biblio-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert は返却トランザクションの中から呼ばれる
func Insert(ctx context.Context, q db.DBTX, p *Penalty) (int64, error) {
	const stmt = `
	INSERT INTO penalties (amount, reason, created_at, status, loan_id)
	VALUES (?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, p.Amount, p.Reason, p.CreatedAt, p.Status, p.LoanID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectPenalty = `
SELECT p.id, p.loan_id, p.amount, p.reason, p.status, p.created_at, p.paid_at,
       m.id, CONCAT(m.first_name, ' ', m.last_name), b.title
FROM penalties p
JOIN loans l ON l.id = p.loan_id
JOIN members m ON m.id = l.member_id
JOIN books b ON b.id = l.book_id`

func (s *Store) list(ctx context.Context, where string, args ...any) ([]PenaltyResponse, error) {
	rows, err := s.db.QueryContext(ctx, selectPenalty+where+` ORDER BY p.created_at DESC, p.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PenaltyResponse{}
	for rows.Next() {
		var (
			r      PenaltyResponse
			paidAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.LoanID, &r.Amount, &r.Reason, &r.Status, &r.CreatedAt, &paidAt,
			&r.MemberID, &r.MemberName, &r.BookTitle); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			r.PaidAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]PenaltyResponse, error) {
	return s.list(ctx, "")
}

func (s *Store) ListUnpaid(ctx context.Context) ([]PenaltyResponse, error) {
	return s.list(ctx, ` WHERE p.status = ?`, StatusUnpaid)
}

// Pay は行ロックしてから状態を見る。戻り値の Status は更新前の値。
func (s *Store) Pay(ctx context.Context, id int64, at time.Time) (Status, error) {
	var before Status
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT status FROM penalties WHERE id = ? FOR UPDATE`, id).Scan(&before); err != nil {
			return err
		}
		if before != StatusUnpaid {
			return nil
		}
		_, err := tx.ExecContext(ctx, `UPDATE penalties SET status = ?, paid_at = ? WHERE id = ? AND status = ?`,
			StatusPaid, at, id, StatusUnpaid)
		return err
	})
	return before, err
}
