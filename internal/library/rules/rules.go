// Package rules は貸出まわりの業務定数と計算ヘルパーをまとめたもの。
// DBには触らない純粋関数だけを置く。
package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type MemberType string

const (
	Student MemberType = "STUDENT"
	Teacher MemberType = "TEACHER"
)

func (t MemberType) Valid() bool { return t == Student || t == Teacher }

const (
	DefaultStudentQuota     = 3
	DefaultTeacherQuota     = 5
	DefaultStudentLoanDays  = 15
	DefaultTeacherLoanDays  = 30
	DefaultPenaltyPerDay    = 50
	DefaultProlongationDays = 7
)

const day = 24 * time.Hour

// Rules は config.yaml の rules セクションに対応する。
// 省略したキーは Default() の値のまま。明示した 0 はそのまま Validate に渡る。
type Rules struct {
	StudentQuota       int             `yaml:"student_quota"`
	TeacherQuota       int             `yaml:"teacher_quota"`
	StudentLoanDays    int             `yaml:"student_loan_days"`
	TeacherLoanDays    int             `yaml:"teacher_loan_days"`
	PenaltyPerDay      decimal.Decimal `yaml:"penalty_per_day"`
	DefaultProlongDays int             `yaml:"default_prolong_days"`
}

func Default() Rules {
	return Rules{
		StudentQuota:       DefaultStudentQuota,
		TeacherQuota:       DefaultTeacherQuota,
		StudentLoanDays:    DefaultStudentLoanDays,
		TeacherLoanDays:    DefaultTeacherLoanDays,
		PenaltyPerDay:      decimal.NewFromInt(DefaultPenaltyPerDay),
		DefaultProlongDays: DefaultProlongationDays,
	}
}

func (r Rules) Validate() error {
	var errs []error
	if r.StudentQuota <= 0 || r.TeacherQuota <= 0 {
		errs = append(errs, errors.New("quotas must be > 0"))
	}
	if r.StudentLoanDays <= 0 || r.TeacherLoanDays <= 0 {
		errs = append(errs, errors.New("loan durations must be > 0"))
	}
	if r.PenaltyPerDay.IsNegative() {
		errs = append(errs, errors.New("penalty_per_day must be >= 0"))
	}
	if r.DefaultProlongDays <= 0 {
		errs = append(errs, errors.New("default_prolong_days must be > 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid rules: %w", errors.Join(errs...))
	}
	return nil
}

// QuotaMax: 同時に借りられる冊数の上限
func (r Rules) QuotaMax(t MemberType) int {
	if t == Teacher {
		return r.TeacherQuota
	}
	return r.StudentQuota
}

func (r Rules) LoanDays(t MemberType) int {
	if t == Teacher {
		return r.TeacherLoanDays
	}
	return r.StudentLoanDays
}

func (r Rules) DueDate(now time.Time, t MemberType) time.Time {
	return now.AddDate(0, 0, r.LoanDays(t))
}

// QuotaAvailable never goes below zero even if legacy data exceeds the quota.
func (r Rules) QuotaAvailable(t MemberType, active int) int {
	n := r.QuotaMax(t) - active
	if n < 0 {
		return 0
	}
	return n
}

// DaysLate は返却予定日からの経過日数（切り捨て）。期限内なら 0。
func DaysLate(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / day)
}

func (r Rules) Penalty(daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return r.PenaltyPerDay.Mul(decimal.NewFromInt(int64(daysLate)))
}
