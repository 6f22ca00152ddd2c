package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/logging"
)

var devOrigins = []string{
	"http://localhost:3000", // Web app
	"http://localhost:8081", // Swagger
}

// corsMiddleware allows the configured production origins, or the local
// development origins outside production.
func corsMiddleware(isProduction bool, prodOrigins string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if isProduction {
		config.AllowOrigins = splitOrigins(prodOrigins)
	} else {
		config.AllowOrigins = devOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader}
	config.ExposeHeaders = []string{logging.RequestIDHeader}
	return cors.New(config)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
