package penalties

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblio-backend/internal/platform/apierr"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

var payAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &Service{store: NewStore(conn), clock: fixedClock{payAt}}, sm
}

func TestPayUnpaid(t *testing.T) {
	svc, sm := newTestService(t)
	sm.ExpectBegin()
	sm.ExpectQuery(`SELECT status FROM penalties WHERE id = \? FOR UPDATE`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("UNPAID"))
	sm.ExpectExec(`UPDATE penalties SET status = \?, paid_at = \?`).
		WithArgs("PAID", payAt, int64(3), "UNPAID").WillReturnResult(sqlmock.NewResult(0, 1))
	sm.ExpectCommit()

	require.NoError(t, svc.Pay(context.Background(), 3))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestPayTwiceIsConflict(t *testing.T) {
	svc, sm := newTestService(t)
	sm.ExpectBegin()
	sm.ExpectQuery(`FOR UPDATE`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PAID"))
	sm.ExpectCommit()

	err := svc.Pay(context.Background(), 3)
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestPayUnknown(t *testing.T) {
	svc, sm := newTestService(t)
	sm.ExpectBegin()
	sm.ExpectQuery(`FOR UPDATE`).WithArgs(int64(404)).WillReturnRows(sqlmock.NewRows([]string{"status"}))
	sm.ExpectRollback()

	err := svc.Pay(context.Background(), 404)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestInsertUsesDecimal(t *testing.T) {
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	p := &Penalty{Amount: decimal.NewFromInt(500), Reason: "Late by 10 day(s) at 50/day", CreatedAt: payAt, Status: StatusUnpaid, LoanID: 12}
	sm.ExpectExec(`INSERT INTO penalties`).WithArgs("500", p.Reason, payAt, "UNPAID", int64(12)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := Insert(context.Background(), conn, p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestHandlerListUnpaid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, sm := newTestService(t)
	r := gin.New()
	RegisterRoutes(r, svc)

	sm.ExpectQuery(`WHERE p.status = \?`).WithArgs("UNPAID").
		WillReturnRows(sqlmock.NewRows([]string{"id", "loan_id", "amount", "reason", "status", "created_at", "paid_at", "mid", "mname", "title"}).
			AddRow(1, 12, "500.00", "Late by 10 day(s) at 50/day", "UNPAID", payAt, nil, 7, "Alice Durand", "Germinal"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/penalties/unpaid", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":"500"`)
	assert.NotContains(t, w.Body.String(), `paid_at`)
	assert.NoError(t, sm.ExpectationsWereMet())
}
