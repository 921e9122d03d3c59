package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request ID between services.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an ID for log correlation. An inbound
// X-Request-ID is propagated unchanged; otherwise a fresh UUIDv7 is minted,
// so generated IDs sort by arrival time.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			v7, _ := uuid.NewV7()
			id = v7.String()
		}

		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
