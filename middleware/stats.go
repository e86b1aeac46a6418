package middleware

import (
	"github.com/gin-gonic/gin"
)

// VisitorTracker records client addresses
type VisitorTracker interface {
	TrackVisitor(ip string)
}

// StatsMiddleware tracks unique visitors
func StatsMiddleware(tracker VisitorTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tracker.TrackVisitor(c.ClientIP())
		c.Next()
	}
}
