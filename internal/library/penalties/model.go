package penalties

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusUnpaid Status = "UNPAID"
	StatusPaid   Status = "PAID"
)

// Penalty は延滞返却1回につき最大1件
type Penalty struct {
	ID        int64
	Amount    decimal.Decimal
	Reason    string
	CreatedAt time.Time
	Status    Status
	PaidAt    *time.Time
	LoanID    int64
}

type PenaltyResponse struct {
	ID         int64           `json:"id"`
	LoanID     int64           `json:"loan_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	MemberID   int64           `json:"member_id"`
	MemberName string          `json:"member_name"`
	BookTitle  string          `json:"book_title"`
}
