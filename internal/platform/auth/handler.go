package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

// RegisterRoutes: login だけ public、それ以外は RequireAuth の内側に置く
func RegisterRoutes(public, protected gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	public.POST("/auth/login", h.Login)
	protected.GET("/auth/me", h.Me)
	protected.POST("/librarians", h.Register)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c *gin.Context) {
	res, err := h.svc.Me(c.Request.Context(), LibrarianID(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/librarians/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}
