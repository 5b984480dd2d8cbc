package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"biblio-backend/internal/platform/apierr"
)

var testSecret = []byte("test-secret-0123456789")

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockStore struct{ mock.Mock }

func (m *mockStore) GetByLogin(ctx context.Context, login string) (*Librarian, error) {
	args := m.Called(ctx, login)
	l, _ := args.Get(0).(*Librarian)
	return l, args.Error(1)
}

func (m *mockStore) GetByID(ctx context.Context, id int64) (*Librarian, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*Librarian)
	return l, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, l *Librarian) (int64, error) {
	args := m.Called(ctx, l)
	return args.Get(0).(int64), args.Error(1)
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginIssuesToken(t *testing.T) {
	store := new(mockStore)
	now := time.Now().UTC().Truncate(time.Second)
	svc := newService(store, testSecret, time.Hour, fixedClock{now})

	store.On("GetByLogin", mock.Anything, "amina").Return(&Librarian{
		ID: 7, Login: "amina", PasswordHash: hashed(t, "s3cret-pass"), LastName: "Diallo", FirstName: "Amina",
	}, nil)

	res, err := svc.Login(context.Background(), LoginRequest{Login: " amina ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Librarian.ID)
	assert.Equal(t, now.Add(time.Hour), res.ExpiresAt)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (any, error) { return testSecret, nil })
	require.NoError(t, err)
	sub, _ := claims.GetSubject()
	assert.Equal(t, "7", sub)
	store.AssertExpectations(t)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	testCases := []struct {
		name string
		lib  *Librarian
	}{
		{"unknown login", nil},
		{"wrong password", &Librarian{ID: 1, Login: "x", PasswordHash: "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"}},
		{"disabled", &Librarian{ID: 2, Login: "x", IsDisabled: true}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			svc := newService(store, testSecret, time.Hour, realClock{})
			store.On("GetByLogin", mock.Anything, "x").Return(tt.lib, nil)

			_, err := svc.Login(context.Background(), LoginRequest{Login: "x", Password: "whatever1"})
			require.Error(t, err)
			assert.True(t, apierr.Is(err, apierr.CodeUnauthenticated))
			assert.Equal(t, "UNAUTHENTICATED: invalid login or password", err.Error())
		})
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	store := new(mockStore)
	svc := newService(store, testSecret, time.Hour, realClock{})

	store.On("GetByLogin", mock.Anything, "koffi").Return(nil, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(l *Librarian) bool {
		return l.Login == "koffi" &&
			l.PasswordHash != "plaintext-pw" &&
			bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte("plaintext-pw")) == nil
	})).Return(int64(12), nil)

	res, err := svc.Register(context.Background(), RegisterRequest{
		Login: "koffi", Password: "plaintext-pw", LastName: "Mensah", FirstName: "Koffi",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.ID)
	store.AssertExpectations(t)
}

func TestRegisterConflicts(t *testing.T) {
	store := new(mockStore)
	svc := newService(store, testSecret, time.Hour, realClock{})
	store.On("GetByLogin", mock.Anything, "dup").Return(&Librarian{ID: 1}, nil).Once()

	_, err := svc.Register(context.Background(), RegisterRequest{Login: "dup", Password: "longenough", LastName: "a", FirstName: "b"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	store.On("GetByLogin", mock.Anything, "race").Return(nil, nil).Once()
	store.On("Create", mock.Anything, mock.Anything).Return(int64(0), &mysql.MySQLError{Number: 1062}).Once()
	_, err = svc.Register(context.Background(), RegisterRequest{Login: "race", Password: "longenough", LastName: "a", FirstName: "b"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = svc.Register(context.Background(), RegisterRequest{Login: "short", Password: "123", LastName: "a", FirstName: "b"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/p", RequireAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": LibrarianID(c)})
	})

	valid := signed(t, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, testSecret)
	expired := signed(t, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(-time.Hour).Unix()}, jwt.SigningMethodHS256, testSecret)
	noExp := signed(t, jwt.MapClaims{"sub": "42"}, jwt.SigningMethodHS256, testSecret)
	otherKey := signed(t, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, []byte("another-secret-key!!"))
	badSub := signed(t, jwt.MapClaims{"sub": "abc", "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, testSecret)

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"no exp", "Bearer " + noExp, http.StatusUnauthorized},
		{"wrong key", "Bearer " + otherKey, http.StatusUnauthorized},
		{"non numeric sub", "Bearer " + badSub, http.StatusUnauthorized},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				var body map[string]int64
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, int64(42), body["id"])
			}
		})
	}
}
