package loans

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"biblio-backend/internal/library/books"
	"biblio-backend/internal/library/members"
	"biblio-backend/internal/library/penalties"
	"biblio-backend/internal/library/rules"
	"biblio-backend/internal/platform/apierr"
)

const dateLayout = "02/01/2006"

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New(t time.Time) (string, error)
}

type ulidGen struct{}

func (ulidGen) New(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Service struct {
	repo  Repository
	rules rules.Rules
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB, r rules.Rules) *Service {
	return newService(NewStore(db), r, realClock{}, ulidGen{})
}

func newService(repo Repository, r rules.Rules, clock Clock, id IDGen) *Service {
	return &Service{repo: repo, rules: r, clock: clock, id: id}
}

// Borrow は 書籍→在庫→会員→ステータス→上限 の順にチェックし、最初に落ちたものを返す。
// 貸出 INSERT と在庫 -1 は同一トランザクション。
func (s *Service) Borrow(ctx context.Context, in BorrowRequest) (BorrowResponse, error) {
	if in.BookID <= 0 || in.MemberID <= 0 {
		return BorrowResponse{}, apierr.Invalid("book_id and member_id are required")
	}
	if in.LibrarianID <= 0 {
		return BorrowResponse{}, apierr.Invalid("librarian_id is required")
	}

	now := s.clock.Now()
	loanULID, err := s.id.New(now)
	if err != nil {
		return BorrowResponse{}, err
	}

	var loan Loan
	err = s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		book, err := tx.LockBook(ctx, in.BookID)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("book")
		}
		if err != nil {
			return err
		}
		if book.AvailableCopies <= 0 {
			return apierr.Unavailable("book")
		}

		m, err := tx.LockMember(ctx, in.MemberID)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("member")
		}
		if err != nil {
			return err
		}
		if m.Status != members.StatusActive {
			return apierr.Ineligible(fmt.Sprintf("member status is %s", m.Status))
		}

		active, err := tx.CountInProgress(ctx, m.ID)
		if err != nil {
			return err
		}
		if limit := s.rules.QuotaMax(m.Type); active >= limit {
			return apierr.QuotaExceeded(fmt.Sprintf("member already has %d of %d loans in progress", active, limit))
		}

		loan = Loan{
			ULID:        loanULID,
			LoanDate:    now,
			DueDate:     s.rules.DueDate(now, m.Type),
			Status:      StatusInProgress,
			BookID:      book.ID,
			MemberID:    m.ID,
			LibrarianID: in.LibrarianID,
		}
		id, err := tx.InsertLoan(ctx, &loan)
		if err != nil {
			if apierr.IsMissingReference(err) {
				return apierr.Invalid("librarian does not exist")
			}
			return err
		}
		loan.ID = id
		return tx.DecrementBook(ctx, book.ID)
	})
	if err != nil {
		return BorrowResponse{}, err
	}

	log.Printf("[INFO] loan %d (%s): book=%d member=%d due=%s", loan.ID, loan.ULID, loan.BookID, loan.MemberID, loan.DueDate.Format(time.DateOnly))
	return BorrowResponse{
		LoanID:   loan.ID,
		LoanULID: loan.ULID,
		DueDate:  loan.DueDate,
		Message:  "Loan recorded, due back on " + loan.DueDate.Format(dateLayout),
	}, nil
}

// Return closes the oldest IN_PROGRESS loan of the book and records a penalty when late.
// 途中で失敗した場合は全体をロールバックする。
func (s *Service) Return(ctx context.Context, in ReturnRequest) (ReturnResponse, error) {
	isbn := books.NormalizeISBN(in.ISBN)
	if isbn == "" {
		return ReturnResponse{}, apierr.Invalid("isbn is required")
	}

	now := s.clock.Now()
	var (
		res    ReturnResponse
		bookID int64
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		loan, err := tx.FindInProgressByISBN(ctx, isbn)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("active loan")
		}
		if err != nil {
			return err
		}
		bookID = loan.BookID
		res = ReturnResponse{LoanID: loan.ID, PenaltyAmount: s.rules.Penalty(0)}

		res.DaysLate = rules.DaysLate(loan.DueDate, now)
		if res.DaysLate > 0 {
			res.PenaltyAmount = s.rules.Penalty(res.DaysLate)
			p := &penalties.Penalty{
				Amount:    res.PenaltyAmount,
				Reason:    fmt.Sprintf("Late by %d day(s) at %s/day", res.DaysLate, s.rules.PenaltyPerDay.String()),
				CreatedAt: now,
				Status:    penalties.StatusUnpaid,
				LoanID:    loan.ID,
			}
			if _, err := tx.InsertPenalty(ctx, p); err != nil {
				return err
			}
		}

		if err := tx.MarkReturned(ctx, loan.ID, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.NotFound("active loan")
			}
			return err
		}
		return tx.IncrementBook(ctx, loan.BookID)
	})
	if err != nil {
		if apierr.IsDomain(err) && !apierr.Is(err, apierr.CodeConflict) {
			return ReturnResponse{}, err
		}
		log.Printf("[ERROR] return isbn=%s: %v", isbn, err)
		return ReturnResponse{}, apierr.Internal("return failed")
	}

	res.Message = "Return recorded"
	if res.DaysLate > 0 {
		res.Message = fmt.Sprintf("Return recorded. LATE: %d day(s), penalty: %s", res.DaysLate, res.PenaltyAmount.String())
	}
	log.Printf("[INFO] loan %d returned, days_late=%d penalty=%s", res.LoanID, res.DaysLate, res.PenaltyAmount.String())

	s.noticeReservation(ctx, bookID)
	return res, nil
}

// noticeReservation はログに出すだけ。予約の状態は変えない。
func (s *Service) noticeReservation(ctx context.Context, bookID int64) {
	r, err := s.repo.FirstWaiting(ctx, bookID)
	if err != nil {
		log.Printf("[WARN] reservation lookup for book %d: %v", bookID, err)
		return
	}
	if r == nil {
		return
	}
	log.Printf("[INFO] reservation notice: book %d (%s) is available for member %d (%s <%s>), reservation %d position %d",
		r.BookID, r.BookTitle, r.MemberID, r.MemberName, r.MemberEmail, r.ID, r.Position)
}

// Prolong pushes the due date of an IN_PROGRESS loan. days == 0 は既定日数。
func (s *Service) Prolong(ctx context.Context, loanID int64, days int) (ProlongResponse, error) {
	if loanID <= 0 {
		return ProlongResponse{}, apierr.Invalid("id must be a positive number")
	}
	if days < 0 {
		return ProlongResponse{}, apierr.Invalid("days must be > 0")
	}
	if days == 0 {
		days = s.rules.DefaultProlongDays
	}

	var due time.Time
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("active loan")
		}
		if err != nil {
			return err
		}
		if loan.Status != StatusInProgress {
			return apierr.NotFound("active loan")
		}
		due = loan.DueDate.AddDate(0, 0, days)
		if err := tx.ExtendDue(ctx, loanID, due); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.NotFound("active loan")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return ProlongResponse{}, err
	}
	return ProlongResponse{
		LoanID:  loanID,
		DueDate: due,
		Message: fmt.Sprintf("Loan extended by %d day(s), due back on %s", days, due.Format(dateLayout)),
	}, nil
}

// ===== 参照系 =====

func (s *Service) List(ctx context.Context, p Page) (ListResponse, error) {
	p = p.normalized()
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return ListResponse{}, err
	}
	return ListResponse{Items: s.toResponses(items), Total: total, NextOffset: nextOffset(total, p)}, nil
}

func (s *Service) ListActive(ctx context.Context) ([]LoanResponse, error) {
	items, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	return s.toResponses(items), nil
}

func (s *Service) ListOverdue(ctx context.Context) ([]LoanResponse, error) {
	items, err := s.repo.ListOverdue(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.toResponses(items), nil
}

func (s *Service) ListByMember(ctx context.Context, memberID int64) ([]LoanResponse, error) {
	if memberID <= 0 {
		return nil, apierr.Invalid("id must be a positive number")
	}
	items, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(items), nil
}

func (s *Service) Get(ctx context.Context, id int64) (LoanResponse, error) {
	v, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return LoanResponse{}, apierr.NotFound("loan")
	}
	if err != nil {
		return LoanResponse{}, err
	}
	return s.toResponse(v, s.clock.Now()), nil
}

func (s *Service) toResponses(vs []LoanView) []LoanResponse {
	now := s.clock.Now()
	out := make([]LoanResponse, 0, len(vs))
	for i := range vs {
		out = append(out, s.toResponse(&vs[i], now))
	}
	return out
}

// 返却済みは返却日時点、未返却は現在時点の延滞日数
func (s *Service) toResponse(v *LoanView, now time.Time) LoanResponse {
	at := now
	if v.ReturnedAt != nil {
		at = *v.ReturnedAt
	}
	return LoanResponse{
		ID:            v.ID,
		ULID:          v.ULID,
		LoanDate:      v.LoanDate,
		DueDate:       v.DueDate,
		ReturnedAt:    v.ReturnedAt,
		Status:        v.Status,
		DaysLate:      rules.DaysLate(v.DueDate, at),
		BookID:        v.BookID,
		ISBN:          v.ISBN,
		BookTitle:     v.BookTitle,
		MemberID:      v.MemberID,
		MemberName:    v.MemberName,
		LibrarianID:   v.LibrarianID,
		LibrarianName: v.LibrarianName,
	}
}
