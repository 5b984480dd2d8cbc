package apierr

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/requestid"
)

type body struct {
	Error *Error `json:"error"`
}

// Abort writes {"error":{"code","message"}}. 想定外のエラーは中身をログにだけ出す。
func Abort(c *gin.Context, err error) {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == CodeInternal {
			log.Printf("[ERROR] %s %s rid=%s: %v", c.Request.Method, c.FullPath(), requestid.Get(c), err)
		}
		c.AbortWithStatusJSON(HTTPStatus(e), body{Error: e})
		return
	}
	log.Printf("[ERROR] %s %s rid=%s: %v", c.Request.Method, c.FullPath(), requestid.Get(c), err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, body{Error: Internal("internal error")})
}

func BadJSON(c *gin.Context) {
	Abort(c, Invalid("invalid json or missing required fields"))
}
