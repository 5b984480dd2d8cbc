package members

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"

	"biblio-backend/internal/library/rules"
	"biblio-backend/internal/platform/apierr"
)

type Service struct {
	repo  Repository
	rules rules.Rules
}

func NewService(db *sql.DB, r rules.Rules) *Service {
	return &Service{repo: NewStore(db), rules: r}
}

// テスト用
func newService(repo Repository, r rules.Rules) *Service {
	return &Service{repo: repo, rules: r}
}

func normalize(in MemberRequest) (*Member, error) {
	m := &Member{
		LastName:  strings.TrimSpace(in.LastName),
		FirstName: strings.TrimSpace(in.FirstName),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Type:      in.Type,
		Status:    in.Status,
	}
	if m.LastName == "" || m.FirstName == "" {
		return nil, apierr.Invalid("last_name and first_name are required")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return nil, apierr.Invalid("email is not a valid address")
	}
	if m.Type == "" {
		m.Type = rules.Student
	}
	if !m.Type.Valid() {
		return nil, apierr.Invalid("member_type must be STUDENT or TEACHER")
	}
	if m.Status == "" {
		m.Status = StatusActive
	}
	if !m.Status.Valid() {
		return nil, apierr.Invalid("status must be ACTIVE, SUSPENDED or EXPIRED")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]MemberResponse, error) {
	ms, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toResponses(ms), nil
}

func (s *Service) Get(ctx context.Context, id int64) (MemberResponse, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return MemberResponse{}, err
	}
	return toResponse(m), nil
}

func (s *Service) get(ctx context.Context, id int64) (*Member, error) {
	m, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("member")
	}
	return m, err
}

func (s *Service) Search(ctx context.Context, keyword string) ([]MemberResponse, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apierr.Invalid("q is required")
	}
	ms, err := s.repo.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return toResponses(ms), nil
}

func (s *Service) Create(ctx context.Context, in MemberRequest) (MemberResponse, error) {
	m, err := normalize(in)
	if err != nil {
		return MemberResponse{}, err
	}
	id, err := s.repo.Create(ctx, m)
	if err != nil {
		if apierr.IsDuplicateKey(err) {
			return MemberResponse{}, apierr.Conflict("email already registered")
		}
		return MemberResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, in MemberRequest) (MemberResponse, error) {
	m, err := normalize(in)
	if err != nil {
		return MemberResponse{}, err
	}
	m.ID = id
	err = s.repo.Update(ctx, m)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return MemberResponse{}, apierr.NotFound("member")
	case apierr.IsDuplicateKey(err):
		return MemberResponse{}, apierr.Conflict("email already registered")
	case err != nil:
		return MemberResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteIfNoActiveLoans(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.NotFound("member")
	}
	return err
}

// ActiveLoanCount: IN_PROGRESS の件数のみ数える
func (s *Service) ActiveLoanCount(ctx context.Context, id int64) (int, error) {
	if _, err := s.get(ctx, id); err != nil {
		return 0, err
	}
	return s.repo.CountActiveLoans(ctx, id)
}

func (s *Service) Quota(ctx context.Context, id int64) (QuotaResponse, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return QuotaResponse{}, err
	}
	active, err := s.repo.CountActiveLoans(ctx, id)
	if err != nil {
		return QuotaResponse{}, err
	}
	avail := s.rules.QuotaAvailable(m.Type, active)
	return QuotaResponse{
		MemberID:       m.ID,
		Type:           m.Type,
		Status:         m.Status,
		QuotaMax:       s.rules.QuotaMax(m.Type),
		ActiveLoans:    active,
		QuotaAvailable: avail,
		CanBorrow:      m.Status == StatusActive && avail > 0,
	}, nil
}

// CanBorrow is advisory; the borrow transaction re-checks under lock.
func (s *Service) CanBorrow(ctx context.Context, id int64) (bool, error) {
	q, err := s.Quota(ctx, id)
	if err != nil {
		return false, err
	}
	return q.CanBorrow, nil
}

func toResponses(ms []Member) []MemberResponse {
	out := make([]MemberResponse, 0, len(ms))
	for i := range ms {
		out = append(out, toResponse(&ms[i]))
	}
	return out
}
