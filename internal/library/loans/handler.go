package loans

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/apierr"
	"biblio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 貸出
	r.GET("/loans", h.List)
	r.POST("/loans", h.Borrow)
	r.GET("/loans/active", h.ListActive)
	r.GET("/loans/overdue", h.ListOverdue)
	r.GET("/loans/:id", h.Get)
	r.POST("/loans/:id/prolong", h.Prolong)

	// 返却 (ISBN 起点)
	r.POST("/loans/returns", h.Return)

	// 会員起点
	r.GET("/members/:id/loans", h.ListByMember)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierr.Abort(c, apierr.Invalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}

// POST /loans
func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	if req.LibrarianID == 0 {
		req.LibrarianID = auth.LibrarianID(c)
	}

	res, err := h.svc.Borrow(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/loans/"+strconv.FormatInt(res.LoanID, 10))
	c.JSON(http.StatusCreated, res)
}

// POST /loans/returns
func (h *Handler) Return(c *gin.Context) {
	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Return(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /loans/:id/prolong  body は省略可
func (h *Handler) Prolong(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ProlongRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Prolong(c.Request.Context(), id, req.Days)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	p := Page{
		Limit:  atoiDef(c.Query("limit"), 50),
		Offset: atoiDef(c.Query("offset"), 0),
	}
	res, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListActive(c *gin.Context) {
	res, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListOverdue(c *gin.Context) {
	res, err := h.svc.ListOverdue(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListByMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.ListByMember(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
