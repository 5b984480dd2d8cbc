package members

import (
	"time"

	"biblio-backend/internal/library/rules"
)

// 作成・更新共通。更新は可変項目の全置換
type MemberRequest struct {
	LastName  string           `json:"last_name" binding:"required"`
	FirstName string           `json:"first_name" binding:"required"`
	Email     string           `json:"email" binding:"required"`
	Phone     string           `json:"phone"`
	Type      rules.MemberType `json:"member_type"` // 未指定なら STUDENT
	Status    Status           `json:"status"`      // 未指定なら ACTIVE
}

type MemberResponse struct {
	ID        int64            `json:"id"`
	LastName  string           `json:"last_name"`
	FirstName string           `json:"first_name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone,omitempty"`
	Type      rules.MemberType `json:"member_type"`
	Status    Status           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

type QuotaResponse struct {
	MemberID       int64            `json:"member_id"`
	Type           rules.MemberType `json:"member_type"`
	Status         Status           `json:"status"`
	QuotaMax       int              `json:"quota_max"`
	ActiveLoans    int              `json:"active_loans"`
	QuotaAvailable int              `json:"quota_available"`
	CanBorrow      bool             `json:"can_borrow"`
}

func toResponse(m *Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		LastName:  m.LastName,
		FirstName: m.FirstName,
		Email:     m.Email,
		Phone:     m.Phone,
		Type:      m.Type,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}
