package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"
	RequestIDKey    = "request_id"
)

// RequestLogger tags every request with an ID and writes one log line when
// it completes. An incoming X-Request-Id is reused so IDs survive proxies.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		log.Printf("request: id=%s method=%s path=%s status=%d duration=%s ip=%s ua=%q referrer=%q",
			requestID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Round(time.Microsecond),
			c.ClientIP(),
			c.Request.UserAgent(),
			c.Request.Referer(),
		)
		if len(c.Errors) > 0 {
			log.Printf("request errors: id=%s err=%s", requestID, c.Errors.String())
		}
	}
}

// RequestID returns the ID assigned by RequestLogger, or "" outside it.
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
