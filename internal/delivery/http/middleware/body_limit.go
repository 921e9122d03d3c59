package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBody caps the request body at limit bytes. Oversized submissions are
// answered 413 up front when Content-Length announces them; chunked bodies
// are capped while the handler reads.
func MaxBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
