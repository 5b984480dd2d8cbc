// Package categories は書籍カテゴリのマスタ管理。
package categories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"biblio-backend/internal/platform/apierr"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UpsertRequest struct {
	Name string `json:"name" binding:"required"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0, 16)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update returns sql.ErrNoRows when the id does not exist.
func (s *Store) Update(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ===== Service =====

type Service struct{ store *Store }

func NewService(db *sql.DB) *Service { return &Service{store: NewStore(db)} }

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.Invalid("name is required")
	}
	return name, nil
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	c, err := s.store.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, apierr.NotFound("category")
	}
	if err != nil {
		return Category{}, err
	}
	return *c, nil
}

func (s *Service) Create(ctx context.Context, in UpsertRequest) (Category, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return Category{}, err
	}
	id, err := s.store.Create(ctx, name)
	if err != nil {
		if apierr.IsDuplicateKey(err) {
			return Category{}, apierr.Conflict("category name already exists")
		}
		return Category{}, err
	}
	return Category{ID: id, Name: name}, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpsertRequest) (Category, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return Category{}, err
	}
	err = s.store.Update(ctx, id, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Category{}, apierr.NotFound("category")
	case apierr.IsDuplicateKey(err):
		return Category{}, apierr.Conflict("category name already exists")
	case err != nil:
		return Category{}, err
	}
	return Category{ID: id, Name: name}, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.Delete(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apierr.NotFound("category")
	case apierr.IsRowReferenced(err):
		return apierr.Conflict("category is still used by books")
	}
	return err
}
