package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "ons-backend/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；Content-Length 已知超限时直接 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Error(resp.CodePayloadTooLarge, ""))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var mbe *http.MaxBytesError
			if errors.As(e.Err, &mbe) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Error(resp.CodePayloadTooLarge, ""))
				return
			}
		}
	}
}
