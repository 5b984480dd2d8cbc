package auth

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"biblio-backend/internal/platform/apierr"
)

const minPasswordLen = 8

// ログイン失敗時は理由を区別しない
var errBadCredentials = apierr.Unauthenticated("invalid login or password")

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	store  LibrarianStore
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewService(db *sql.DB, secret []byte, ttl time.Duration) *Service {
	return newService(NewStore(db), secret, ttl, realClock{})
}

func newService(store LibrarianStore, secret []byte, ttl time.Duration, clock Clock) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, clock: clock}
}

func (s *Service) Secret() []byte { return s.secret }

func (s *Service) Login(ctx context.Context, in LoginRequest) (LoginResponse, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return LoginResponse{}, apierr.Invalid("login and password are required")
	}

	l, err := s.store.GetByLogin(ctx, login)
	if err != nil {
		return LoginResponse{}, err
	}
	if l == nil || l.IsDisabled {
		return LoginResponse{}, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte(in.Password)); err != nil {
		return LoginResponse{}, errBadCredentials
	}

	now := s.clock.Now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(l.ID, 10),
		"login": l.Login,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{Token: signed, ExpiresAt: exp, Librarian: toResponse(l)}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) (LibrarianResponse, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || strings.TrimSpace(in.LastName) == "" || strings.TrimSpace(in.FirstName) == "" {
		return LibrarianResponse{}, apierr.Invalid("login, last_name and first_name are required")
	}
	if len(in.Password) < minPasswordLen {
		return LibrarianResponse{}, apierr.Invalid("password must be at least 8 characters")
	}

	exists, err := s.store.GetByLogin(ctx, login)
	if err != nil {
		return LibrarianResponse{}, err
	}
	if exists != nil {
		return LibrarianResponse{}, apierr.Conflict("login already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return LibrarianResponse{}, err
	}

	l := &Librarian{
		Login:        login,
		PasswordHash: string(hash),
		LastName:     strings.TrimSpace(in.LastName),
		FirstName:    strings.TrimSpace(in.FirstName),
		CreatedAt:    s.clock.Now(),
	}
	id, err := s.store.Create(ctx, l)
	if err != nil {
		// GetByLogin と INSERT の間に同じ login が入った場合
		if apierr.IsDuplicateKey(err) {
			return LibrarianResponse{}, apierr.Conflict("login already exists")
		}
		return LibrarianResponse{}, err
	}
	l.ID = id
	return toResponse(l), nil
}

func (s *Service) Me(ctx context.Context, id int64) (LibrarianResponse, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return LibrarianResponse{}, err
	}
	if l == nil {
		return LibrarianResponse{}, apierr.NotFound("librarian")
	}
	return toResponse(l), nil
}

func toResponse(l *Librarian) LibrarianResponse {
	return LibrarianResponse{
		ID:        l.ID,
		Login:     l.Login,
		LastName:  l.LastName,
		FirstName: l.FirstName,
	}
}
