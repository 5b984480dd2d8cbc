package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Librarian struct {
	ID           int64
	Login        string
	PasswordHash string
	LastName     string
	FirstName    string
	IsDisabled   bool
	CreatedAt    time.Time
}

type LibrarianStore interface {
	GetByLogin(ctx context.Context, login string) (*Librarian, error)
	GetByID(ctx context.Context, id int64) (*Librarian, error)
	Create(ctx context.Context, l *Librarian) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) LibrarianStore {
	return &Store{db: db}
}

const librarianColumns = `id, login, password_hash, last_name, first_name, is_disabled, created_at`

// 見つからない場合は (nil, nil)
func (s *Store) GetByLogin(ctx context.Context, login string) (*Librarian, error) {
	const q = `SELECT ` + librarianColumns + ` FROM librarians WHERE login = ? LIMIT 1`
	return scanLibrarian(s.db.QueryRowContext(ctx, q, login))
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Librarian, error) {
	const q = `SELECT ` + librarianColumns + ` FROM librarians WHERE id = ? LIMIT 1`
	return scanLibrarian(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) Create(ctx context.Context, l *Librarian) (int64, error) {
	const q = `
INSERT INTO librarians (login, password_hash, last_name, first_name, is_disabled, created_at)
VALUES (?, ?, ?, ?, 0, NOW(6))`
	res, err := s.db.ExecContext(ctx, q, l.Login, l.PasswordHash, l.LastName, l.FirstName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanLibrarian(row *sql.Row) (*Librarian, error) {
	var l Librarian
	err := row.Scan(&l.ID, &l.Login, &l.PasswordHash, &l.LastName, &l.FirstName, &l.IsDisabled, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
