package categories

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/categories", h.List)
	r.POST("/categories", h.Create)
	r.GET("/categories/:id", h.Get)
	r.PUT("/categories/:id", h.Update)
	r.DELETE("/categories/:id", h.Delete)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierr.Abort(c, apierr.Invalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context())
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

func (h *Handler) Create(c *gin.Context) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/categories/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
