package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/onegreenvn/green-session-service/internal/config"
	"github.com/onegreenvn/green-session-service/internal/handlers"
	"github.com/onegreenvn/green-session-service/internal/middleware"
	"github.com/onegreenvn/green-session-service/internal/services/auth"
	"github.com/onegreenvn/green-session-service/internal/services/excel"
	"github.com/onegreenvn/green-session-service/internal/services/ratelimit"
)

// Deps are the collaborators the HTTP surface is built from
type Deps struct {
	AuthService *auth.AuthService
	Limiter     ratelimit.Limiter
	Registry    *prometheus.Registry
}

// SetupRouter configures the Gin router with the session routes
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(cfg.BasePath))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.RefreshTokenHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(deps.AuthService)
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	sessionHandler := handlers.NewSessionHandler(deps.AuthService, excel.NewExcelService())

	gate := func(action string, rule config.RateRule) gin.HandlerFunc {
		return middleware.RateLimit(deps.Limiter, action, ratelimit.Rule{Limit: rule.Limit, Window: rule.Window}, handlers.RespondError)
	}

	base := r.Group(cfg.BasePath)

	base.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if deps.Registry != nil {
		base.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	base.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logrus.Infof("Swagger UI endpoint registered at %s/swagger/index.html", cfg.BasePath)

	api := base.Group("/api/v1")
	{
		// Public auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", gate("login", cfg.RateLimit.Login), authHandler.Login)
			authRoutes.POST("/refresh", gate("refresh", cfg.RateLimit.Refresh), authHandler.RefreshToken)
			authRoutes.POST("/logout", gate("logout", cfg.RateLimit.Logout), authHandler.Logout)
		}

		// Protected routes
		protected := api.Group("/auth")
		protected.Use(bearerTokenMiddleware.BearerTokenAuth())
		{
			protected.POST("/logout-all", authHandler.LogoutAll)

			sessions := protected.Group("/sessions")
			{
				sessions.GET("", sessionHandler.ListSessions)
				sessions.GET("/export", sessionHandler.ExportSessions)
				sessions.DELETE("/:id", sessionHandler.RevokeSession)
			}
		}
	}

	return r
}
