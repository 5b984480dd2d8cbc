// Package stats は集計値のみ返す。状態は持たない。
package stats

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"biblio-backend/internal/platform/apierr"
	"biblio-backend/internal/platform/db"
)

type Stats struct {
	LoansTotal      int64           `json:"loans_total"`
	LoansInProgress int64           `json:"loans_in_progress"`
	LoansLate       int64           `json:"loans_late"` // status = LATE の旧データ
	LoansReturned   int64           `json:"loans_returned"`
	LoansOverdue    int64           `json:"loans_overdue"` // IN_PROGRESS で期限切れ
	AvailableCopies int64           `json:"available_copies"`
	ActiveMembers   int64           `json:"active_members"`
	UnpaidPenalties decimal.Decimal `json:"unpaid_penalties"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	db    *sql.DB
	clock Clock
}

func NewService(db *sql.DB) *Service { return &Service{db: db, clock: realClock{}} }

const loanCounts = `
SELECT COUNT(*),
       COALESCE(SUM(status = 'IN_PROGRESS'), 0),
       COALESCE(SUM(status = 'LATE'), 0),
       COALESCE(SUM(status = 'RETURNED'), 0),
       COALESCE(SUM(status = 'IN_PROGRESS' AND due_date < ?), 0)
FROM loans`

// Get は読み取り専用トランザクション1本で全部集計する（値の整合を取るため）
func (s *Service) Get(ctx context.Context) (Stats, error) {
	now := s.clock.Now()
	st := Stats{GeneratedAt: now}
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, loanCounts, now).Scan(
			&st.LoansTotal, &st.LoansInProgress, &st.LoansLate, &st.LoansReturned, &st.LoansOverdue); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(available_copies), 0) FROM books`).Scan(&st.AvailableCopies); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM members WHERE status = 'ACTIVE'`).Scan(&st.ActiveMembers); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM penalties WHERE status = 'UNPAID'`).Scan(&st.UnpaidPenalties)
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// ===== handler =====

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	r.GET("/stats", func(c *gin.Context) {
		st, err := svc.Get(c.Request.Context())
		if err != nil {
			apierr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})
}
