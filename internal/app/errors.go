package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/userdir/internal/pkg"
)

// statusHandler answers every request with the JSON envelope for code, e.g.
//
//	{"code": 404, "message": "not found", "data": null}
func statusHandler(code int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(code, pkg.Response{
			Code:    code,
			Message: statusMessage(code),
		})
	}
}

// statusMessage returns the lower-case status text for code.
func statusMessage(code int) string {
	if text := http.StatusText(code); text != "" {
		return strings.ToLower(text)
	}
	return "error"
}
