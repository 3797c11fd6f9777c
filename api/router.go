package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Bookings *BookingHandler
	Doctors  *DoctorHandler
}

// Mount registers the public API under /api/v1. Availability is readable
// without a token; every booking route requires one.
func Mount(engine *gin.Engine, handlers Handlers, verifier *TokenVerifier) {
	v1 := engine.Group("/api/v1")
	handlers.Doctors.Register(v1.Group("/doctors"))
	handlers.Bookings.Register(v1.Group("/bookings", JWTAuth(verifier)))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
			if last := c.Errors.Last(); last != nil {
				event = event.Err(last.Err)
			}
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
