package loans

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusLate       Status = "LATE" // 旧データ互換。このサービスからは書き込まない
	StatusReturned   Status = "RETURNED"
)

// Loan は loans テーブルの1行
type Loan struct {
	ID          int64
	ULID        string
	LoanDate    time.Time
	DueDate     time.Time
	ReturnedAt  *time.Time
	Status      Status
	BookID      int64
	MemberID    int64
	LibrarianID int64
}

// LoanView は一覧表示用 (会員・書籍・司書名つき)
type LoanView struct {
	Loan
	ISBN          string
	BookTitle     string
	MemberName    string
	LibrarianName string
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ===== DTO =====

type BorrowRequest struct {
	BookID      int64 `json:"book_id" binding:"required"`
	MemberID    int64 `json:"member_id" binding:"required"`
	LibrarianID int64 `json:"librarian_id"` // 省略時はログイン中の司書
}

type BorrowResponse struct {
	LoanID   int64     `json:"loan_id"`
	LoanULID string    `json:"loan_ulid"`
	DueDate  time.Time `json:"due_date"`
	Message  string    `json:"message"`
}

type ReturnRequest struct {
	ISBN string `json:"isbn" binding:"required"`
}

type ReturnResponse struct {
	LoanID        int64           `json:"loan_id"`
	DaysLate      int             `json:"days_late"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
	Message       string          `json:"message"`
}

type ProlongRequest struct {
	Days int `json:"days"` // 0 なら既定日数
}

type ProlongResponse struct {
	LoanID  int64     `json:"loan_id"`
	DueDate time.Time `json:"due_date"`
	Message string    `json:"message"`
}

type LoanResponse struct {
	ID            int64      `json:"id"`
	ULID          string     `json:"loan_ulid"`
	LoanDate      time.Time  `json:"loan_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	Status        Status     `json:"status"`
	DaysLate      int        `json:"days_late"`
	BookID        int64      `json:"book_id"`
	ISBN          string     `json:"isbn"`
	BookTitle     string     `json:"book_title"`
	MemberID      int64      `json:"member_id"`
	MemberName    string     `json:"member_name"`
	LibrarianID   int64      `json:"librarian_id"`
	LibrarianName string     `json:"librarian_name,omitempty"`
}

type ListResponse struct {
	Items      []LoanResponse `json:"items"`
	Total      int64          `json:"total"`
	NextOffset int            `json:"next_offset"`
}

func nextOffset(total int64, p Page) int {
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0
	}
	return n
}
