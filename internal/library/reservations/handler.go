package reservations

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reservations", h.List)
}

// GET /reservations?book_id=&status=
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if v := c.Query("book_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			apierr.Abort(c, apierr.Invalid("book_id must be a positive number"))
			return
		}
		f.BookID = &id
	}
	if v := c.Query("status"); v != "" {
		st := Status(strings.ToUpper(v))
		f.Status = &st
	}
	res, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
