package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BelikanM/cub/internal/middleware"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/util"
	"github.com/BelikanM/cub/internal/websocket"
)

// RouteOptions wires the pieces the routes need besides the handlers
type RouteOptions struct {
	// AuthMiddleware rejects requests without a valid bearer token
	AuthMiddleware gin.HandlerFunc
	// Realtime serves the change feed channel; nil disables it
	Realtime *websocket.Handler
	// RateCounter shares rate limits across instances; nil keeps them in memory
	RateCounter middleware.WindowCounter
	// RequestsPerMinute per signed in user on the API
	RequestsPerMinute int
}

// RegisterRoutes mounts every endpoint on r
func (h *Handlers) RegisterRoutes(r *gin.Engine, opts RouteOptions) {
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics())

	authMW := opts.AuthMiddleware
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 300
	}
	perUser := middleware.DefaultRateLimitConfig(opts.RequestsPerMinute)
	perUser.KeyFunc = userRateKey
	uploads := middleware.UploadRateLimitConfig()
	uploads.KeyFunc = userRateKey

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authLimit := middleware.RateLimit(opts.RateCounter, "auth", middleware.AuthRateLimitConfig())
			authGroup.POST("/register", authLimit, h.Register)
			authGroup.POST("/login", authLimit, h.Login)
			authGroup.GET("/me", authMW, h.Me)
		}

		if opts.Realtime != nil {
			api.GET("/realtime", opts.Realtime.HandleWebSocket)
			api.GET("/realtime/metrics", authMW, opts.Realtime.HandleMetrics)
		}

		protected := api.Group("")
		protected.Use(authMW, middleware.RateLimit(opts.RateCounter, "api", perUser))
		{
			protected.GET("/profile", h.GetProfile)
			protected.PUT("/profile", h.UpdateProfile)
			protected.GET("/users", h.ListUsers)
			protected.POST("/users/sync", h.SyncUser)

			for _, table := range []string{models.TablePosts, models.TableMedia, models.TableFollows} {
				g := protected.Group("/" + table)
				g.GET("", h.ListResource(table))
				g.POST("", h.CreateResource(table))
				g.PATCH("/:id", h.UpdateResource(table))
				g.DELETE("/:id", h.DeleteResource(table))
			}

			uploadLimit := middleware.RateLimit(opts.RateCounter, "upload", uploads)
			protected.POST("/media/upload", uploadLimit, h.UploadMedia)
			protected.GET("/media/:id/download", h.DownloadMedia)
			protected.POST("/storage/upload", uploadLimit, h.UploadObject)

			rest := protected.Group("/rest")
			rest.GET("/:table", h.ListTable)
			rest.POST("/:table", h.InsertTableRow)
			rest.PATCH("/:table/:id", h.UpdateTableRow)
			rest.DELETE("/:table/:id", h.DeleteTableRow)
		}
	}
}

func userRateKey(c *gin.Context) string {
	if id := c.GetString(util.UserIDKey); id != "" {
		return "user:" + id
	}
	return c.ClientIP()
}
