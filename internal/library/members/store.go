package members

import (
	"context"
	"database/sql"
	"strings"

	"biblio-backend/internal/platform/apierr"
	"biblio-backend/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context) ([]Member, error)
	Get(ctx context.Context, id int64) (*Member, error)
	Search(ctx context.Context, keyword string) ([]Member, error)
	Create(ctx context.Context, m *Member) (int64, error)
	Update(ctx context.Context, m *Member) error
	CountActiveLoans(ctx context.Context, memberID int64) (int, error)
	DeleteIfNoActiveLoans(ctx context.Context, id int64) error
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const memberColumns = `id, last_name, first_name, email, COALESCE(phone, ''), member_type, status, created_at`

func scanMember(sc interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	if err := sc.Scan(&m.ID, &m.LastName, &m.FirstName, &m.Email, &m.Phone, &m.Type, &m.Status, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) queryMembers(ctx context.Context, q string, args ...any) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]Member, error) {
	return s.queryMembers(ctx, `SELECT `+memberColumns+` FROM members ORDER BY last_name, first_name`)
}

// sql.ErrNoRows if missing
func (s *Store) Get(ctx context.Context, id int64) (*Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
}

func (s *Store) Search(ctx context.Context, keyword string) ([]Member, error) {
	const q = `SELECT ` + memberColumns + ` FROM members
	WHERE LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(email) LIKE ?
	ORDER BY last_name, first_name`
	p := likePattern(keyword)
	return s.queryMembers(ctx, q, p, p, p)
}

func (s *Store) Create(ctx context.Context, m *Member) (int64, error) {
	const q = `
	INSERT INTO members (last_name, first_name, email, phone, member_type, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`
	res, err := s.db.ExecContext(ctx, q, m.LastName, m.FirstName, m.Email, nullIfEmpty(m.Phone), m.Type, m.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Update(ctx context.Context, m *Member) error {
	const q = `
	UPDATE members
	SET last_name = ?, first_name = ?, email = ?, phone = ?, member_type = ?, status = ?
	WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, m.LastName, m.FirstName, m.Email, nullIfEmpty(m.Phone), m.Type, m.Status, m.ID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CountActiveLoans(ctx context.Context, memberID int64) (int, error) {
	return CountActiveLoans(ctx, s.db, memberID)
}

// CountActiveLoans is shared with the loan store, which calls it inside its own tx.
func CountActiveLoans(ctx context.Context, q db.DBTX, memberID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE member_id = ? AND status = 'IN_PROGRESS'`, memberID).Scan(&n)
	return n, err
}

// DeleteIfNoActiveLoans: 会員行をロック → 貸出中・未払い罰金チェック → DELETE を1トランザクションで行う
func (s *Store) DeleteIfNoActiveLoans(ctx context.Context, id int64) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var locked int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM members WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
		n, err := CountActiveLoans(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apierr.HasActiveLoans("member")
		}
		// 削除すると貸出履歴と一緒に罰金も消えるので、未払いが残る会員は消さない
		var unpaid int
		err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM penalties p
		JOIN loans l ON l.id = p.loan_id
		WHERE l.member_id = ? AND p.status = 'UNPAID'`, id).Scan(&unpaid)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return apierr.Conflict("member has unpaid penalties")
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
		return err
	})
}

// likePattern escapes LIKE wildcards and lower-cases the keyword.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(keyword)) + "%"
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
