package books

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/apierr"
)

const maxImportBytes = 4 << 20

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/books", h.List)
	r.POST("/books", h.Create)
	r.GET("/books/available", h.ListAvailable)
	r.GET("/books/search", h.Search)
	r.GET("/books/isbn/:isbn", h.GetByISBN)
	r.POST("/books/import", h.Import)
	r.GET("/books/:id", h.Get)
	r.PUT("/books/:id", h.Update)
	r.DELETE("/books/:id", h.Delete)
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

func (h *Handler) ListAvailable(c *gin.Context) {
	res, err := h.svc.ListAvailable(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Search(c *gin.Context) {
	res, err := h.svc.Search(c.Request.Context(), c.Query("q"))
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

func (h *Handler) GetByISBN(c *gin.Context) {
	res, err := h.svc.GetByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Create(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/books/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req BookRequest
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

// Import: multipart の "file" を優先、無ければ body をそのまま CSV とみなす。
// ?charset=utf-8|latin1|windows-1252|shift_jis
func (h *Handler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			apierr.Abort(c, apierr.Invalid("multipart upload needs a \"file\" field"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			apierr.Abort(c, apierr.Invalid("cannot open uploaded file"))
			return
		}
		defer f.Close()
		body = f
	}
	res, err := h.svc.Import(c.Request.Context(), body, c.Query("charset"))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
