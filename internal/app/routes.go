package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/modules/alert"
	"github.com/motohub/core/internal/modules/auth"
	"github.com/motohub/core/internal/modules/booking"
	"github.com/motohub/core/internal/modules/garage"
	"github.com/motohub/core/internal/modules/gateway"
	"github.com/motohub/core/internal/modules/health"
	"github.com/motohub/core/internal/modules/post"
	"github.com/motohub/core/internal/modules/review"
	"github.com/motohub/core/internal/modules/tasks"
	"github.com/motohub/core/internal/modules/upload"
	"github.com/motohub/core/internal/modules/user"
	"github.com/motohub/core/internal/modules/video"
	pkgredis "github.com/motohub/core/internal/pkg/redis"
	"github.com/motohub/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	a.router.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	a.router.NoMethod(func(c *gin.Context) {
		response.BadRequest(c, "method not allowed")
	})

	a.router.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name": a.cfg.SiteName,
			"api":  apiPrefix,
		})
	})
	a.router.GET("/ping", func(c *gin.Context) {
		c.String(200, "pong")
	})
	a.router.GET("/uptime", func(c *gin.Context) {
		response.OK(c, gin.H{
			"uptime": humanizeDuration(time.Since(processStart)),
		})
	})

	// Socket.io gateway lives outside the API prefix so standard clients
	// can connect at the conventional path.
	a.router.Any("/socket.io/*any", gin.WrapH(a.hub.Handler()))

	authMW := middleware.Auth(a.db)
	optionalMW := middleware.OptionalAuth(a.db)
	adminMW := middleware.RequireRole(a.db, models.RoleAdmin)

	api := a.router.Group(apiPrefix)
	api.Use(middleware.RateLimit(rc.Raw()))
	api.Use(middleware.Idempotence(rc.Raw()))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		SkipPaths: []string{
			apiPrefix + "/auth",
			apiPrefix + "/users/me",
			apiPrefix + "/bookings",
			apiPrefix + "/gateway",
			apiPrefix + "/health",
		},
	}))

	authSvc := auth.NewService(a.db, rc, a.sender, a.logger, a.cfg.SiteName, a.cfg.WebURL)
	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)

	userSvc := user.NewService(a.db)
	user.NewHandler(userSvc, adminMW).RegisterRoutes(api, authMW)

	garageSvc := garage.NewService(a.db)
	garage.NewHandler(garageSvc, adminMW).RegisterRoutes(api, authMW)

	agg := garage.NewAggregator(a.db)
	reviewSvc := review.NewService(a.db, agg)
	review.NewHandler(reviewSvc).RegisterRoutes(api, authMW)

	bookingSvc := booking.NewService(a.db, a.sender, a.hub, a.logger, a.cfg.SiteName)
	booking.NewHandler(bookingSvc).RegisterRoutes(api, authMW)

	alertSvc := alert.NewService(a.mongoDB, a.hub, a.logger)
	alert.NewHandler(alertSvc, a.db, adminMW).RegisterRoutes(api, authMW, optionalMW)

	postSvc := post.NewService(a.mongoDB)
	post.NewHandler(postSvc, a.db).RegisterRoutes(api, authMW, optionalMW)

	videoSvc := video.NewService(a.mongoDB)
	video.NewHandler(videoSvc, a.db, adminMW).RegisterRoutes(api, authMW)

	upload.NewHandler(a.cfg, a.logger).RegisterRoutes(api, authMW)

	health.RegisterRoutes(api, a.db, a.mongoDB, rc, a.sched, authMW, adminMW)

	tasks.NewHandler(a.tq).RegisterRoutes(api, authMW, adminMW)

	gw := api.Group("/gateway")
	gw.GET("/stats", func(c *gin.Context) {
		response.OK(c, gin.H{
			"online": a.hub.ClientCount(gateway.RoomPublic),
		})
	})
}
