package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docverify-backend/internal/comparison"
	"docverify-backend/internal/shared/config"
	"docverify-backend/internal/shared/metrics"
	"docverify-backend/internal/shared/server/middleware"
	"docverify-backend/internal/shared/server/respond"
	"docverify-backend/internal/verification"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config              config.Config
	VerificationHandler *verification.Handler
	ComparisonHandler   *comparison.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	deps.VerificationHandler.RegisterRoutes(api)

	admin := api.Group("/admin")
	deps.VerificationHandler.RegisterAdminRoutes(admin)
	deps.ComparisonHandler.RegisterAdminRoutes(admin)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
