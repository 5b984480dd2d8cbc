package auth

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"biblio-backend/internal/platform/apierr"
)

const CtxLibrarianIDKey = "librarian_id"

// RequireAuth: Authorization: Bearer <token> を検証して librarian_id を context に詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		scheme, tokenStr, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
			apierr.Abort(c, apierr.Unauthenticated("missing or malformed Authorization header"))
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			apierr.Abort(c, apierr.Unauthenticated("invalid token"))
			return
		}

		sub, err := claims.GetSubject()
		if err != nil {
			apierr.Abort(c, apierr.Unauthenticated("invalid token subject"))
			return
		}
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || id <= 0 {
			apierr.Abort(c, apierr.Unauthenticated("invalid token subject"))
			return
		}

		c.Set(CtxLibrarianIDKey, id)
		c.Next()
	}
}

// LibrarianID returns the authenticated librarian, 0 if the route is unauthenticated.
func LibrarianID(c *gin.Context) int64 {
	if v, ok := c.Get(CtxLibrarianIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
