package auth

import "time"

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Librarian LibrarianResponse `json:"librarian"`
}

type RegisterRequest struct {
	Login     string `json:"login" binding:"required"`
	Password  string `json:"password" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
}

type LibrarianResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
}
