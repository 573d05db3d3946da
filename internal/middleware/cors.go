package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets browser clients on the given origins call the API. An empty
// list or one containing "*" allows every origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader, "Location"},
		MaxAge:        12 * time.Hour,
	}

	cfg.AllowOrigins = allowedOrigins
	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowOrigins = nil
			cfg.AllowAllOrigins = true
			break
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}

	return cors.New(cfg)
}
