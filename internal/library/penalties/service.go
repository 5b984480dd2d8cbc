package penalties

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/apierr"
)

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store *Store
	clock Clock
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db), clock: realClock{}}
}

func (s *Service) List(ctx context.Context) ([]PenaltyResponse, error) {
	return s.store.List(ctx)
}

func (s *Service) ListUnpaid(ctx context.Context) ([]PenaltyResponse, error) {
	return s.store.ListUnpaid(ctx)
}

// Pay: UNPAID -> PAID。既に PAID なら Conflict
func (s *Service) Pay(ctx context.Context, id int64) error {
	before, err := s.store.Pay(ctx, id, s.clock.Now().UTC())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apierr.NotFound("penalty")
	case err != nil:
		return err
	case before == StatusPaid:
		return apierr.Conflict("penalty already paid")
	}
	return nil
}

// ===== handler =====

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/penalties", h.List)
	r.GET("/penalties/unpaid", h.ListUnpaid)
	r.PUT("/penalties/:id/pay", h.Pay)
}

func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListUnpaid(c *gin.Context) {
	res, err := h.svc.ListUnpaid(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Pay(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierr.Abort(c, apierr.Invalid("id must be a positive number"))
		return
	}
	if err := h.svc.Pay(c.Request.Context(), id); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": StatusPaid})
}
