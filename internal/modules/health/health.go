package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/pkg/cron"
	pkgredis "github.com/motohub/core/internal/pkg/redis"
	"github.com/motohub/core/internal/pkg/response"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/gorm"
)

var startedAt = time.Now()

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, mongoDB *mongo.Database, rc *pkgredis.Client, sched *cron.Scheduler, authMW, adminMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		dbOK := err == nil && sqlDB.PingContext(ctx) == nil

		mongoOK := mongoDB != nil && mongoDB.Client().Ping(ctx, readpref.Primary()) == nil

		redisOK := rc != nil && rc.Raw().Ping(ctx).Err() == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK || !mongoOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":   status,
			"database": dbOK,
			"mongo":    mongoOK,
			"redis":    redisOK,
			"uptime":   int64(time.Since(startedAt).Seconds()),
		})
	})

	cronGroup := rg.Group("/health/cron", authMW, adminMW)
	{
		cronGroup.GET("", func(c *gin.Context) {
			items := sched.List()
			byName := make(map[string]cron.ListItem, len(items))
			for _, item := range items {
				byName[item.Name] = item
			}
			response.OK(c, byName)
		})

		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if err := sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})

		cronGroup.GET("/task/:name", func(c *gin.Context) {
			result, err := sched.GetTask(c.Param("name"))
			if err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, result)
		})
	}
}
