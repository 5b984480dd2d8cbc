package books

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"biblio-backend/internal/platform/apierr"
)

type Service struct{ repo Repository }

func NewService(db *sql.DB) *Service { return &Service{repo: NewStore(db)} }

func newService(repo Repository) *Service { return &Service{repo: repo} }

// normalize validates a create/update payload. available_copies を省略すると total と同じ
// (Create のみ。Update は保存済みの値から決め直す)
func normalize(in BookRequest) (*Book, error) {
	b := &Book{
		ISBN:        NormalizeISBN(in.ISBN),
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		TotalCopies: in.TotalCopies,
		CategoryID:  in.CategoryID,
	}
	if b.ISBN == "" || b.Title == "" || b.Author == "" {
		return nil, apierr.Invalid("isbn, title and author are required")
	}
	if b.CategoryID <= 0 {
		return nil, apierr.Invalid("category_id is required")
	}
	if b.TotalCopies < 1 {
		return nil, apierr.Invalid("total_copies must be >= 1")
	}
	b.AvailableCopies = b.TotalCopies
	if in.AvailableCopies != nil {
		b.AvailableCopies = *in.AvailableCopies
	}
	if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return nil, apierr.Invalid("available_copies must be between 0 and total_copies")
	}
	return b, nil
}

// NormalizeISBN: ハイフン・空白は取り除いて保存する
func NormalizeISBN(s string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s)))
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apierr.NotFound("book")
	case apierr.IsDuplicateKey(err):
		return apierr.Conflict("isbn already registered")
	case apierr.IsMissingReference(err):
		return apierr.Invalid("category does not exist")
	}
	return err
}

func (s *Service) List(ctx context.Context, p Page) (ListResponse, error) {
	p = p.normalized()
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return ListResponse{}, err
	}
	return ListResponse{Items: toResponses(items), Total: total, NextOffset: nextOffset(total, p)}, nil
}

func (s *Service) ListAvailable(ctx context.Context) ([]BookResponse, error) {
	items, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Get(ctx context.Context, id int64) (BookResponse, error) {
	b, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return BookResponse{}, apierr.NotFound("book")
	}
	if err != nil {
		return BookResponse{}, err
	}
	return toResponse(b), nil
}

func (s *Service) GetByISBN(ctx context.Context, isbn string) (BookResponse, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return BookResponse{}, apierr.Invalid("isbn is required")
	}
	b, err := s.repo.GetByISBN(ctx, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return BookResponse{}, apierr.NotFound("book")
	}
	if err != nil {
		return BookResponse{}, err
	}
	return toResponse(b), nil
}

func (s *Service) Search(ctx context.Context, keyword string) ([]BookResponse, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apierr.Invalid("q is required")
	}
	items, err := s.repo.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Create(ctx context.Context, in BookRequest) (BookResponse, error) {
	b, err := normalize(in)
	if err != nil {
		return BookResponse{}, err
	}
	id, err := s.repo.Create(ctx, b)
	if err != nil {
		return BookResponse{}, mapWriteErr(err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, in BookRequest) (BookResponse, error) {
	b, err := normalize(in)
	if err != nil {
		return BookResponse{}, err
	}
	b.ID = id
	if err := mapWriteErr(s.repo.Update(ctx, b, in.AvailableCopies)); err != nil {
		return BookResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteIfNoActiveLoans(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.NotFound("book")
	}
	return err
}

// DecrementAvailable / IncrementAvailable are single-row guarded updates outside any loan.
func (s *Service) DecrementAvailable(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.AdjustAvailable(ctx, id, -1)
}

func (s *Service) IncrementAvailable(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.AdjustAvailable(ctx, id, +1)
}
