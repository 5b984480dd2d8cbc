package members

import (
	"time"

	"biblio-backend/internal/library/rules"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusExpired   Status = "EXPIRED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusExpired:
		return true
	}
	return false
}

// Member は members テーブルの1行
type Member struct {
	ID        int64
	LastName  string
	FirstName string
	Email     string
	Phone     string
	Type      rules.MemberType
	Status    Status
	CreatedAt time.Time
}
