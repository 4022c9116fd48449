package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/config"
	"github.com/motohub/core/internal/database"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/modules/gateway"
	pkgcron "github.com/motohub/core/internal/pkg/cron"
	"github.com/motohub/core/internal/pkg/mail"
	pkgredis "github.com/motohub/core/internal/pkg/redis"
	"github.com/motohub/core/internal/pkg/taskqueue"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	mongoDB *mongo.Database
	hub     *gateway.Hub
	logger  *zap.Logger
	cancel  context.CancelFunc
	sched   *pkgcron.Scheduler
	sender  *mail.Sender
	tq      *taskqueue.Service
}

// New initializes the application: config → stores → hub → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	mongoDB, err := database.ConnectMongo(cfg.MongoURL)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.Redis.URLValue())
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-moto-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	hub := gateway.NewHub(rc, logger, func(token string) (string, bool) {
		claims, err := middleware.ValidateTokenClaims(db, token)
		if err != nil {
			return "", false
		}
		return claims.UserID, true
	})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sched := pkgcron.New()
	registerCronJobs(sched, db, mongoDB, hub, logger)
	go sched.Start(ctx)

	tq := taskqueue.NewService(rc)
	var sender *mail.Sender
	if cfg.Mail.Enable {
		sender = mail.New(mail.BuildMailConfig(cfg)).WithQueue(tq, logger)
		go sender.RunQueue(ctx)
	}

	app := &App{
		cfg:     cfg,
		router:  router,
		db:      db,
		mongoDB: mongoDB,
		hub:     hub,
		logger:  logger,
		cancel:  cancel,
		sched:   sched,
		sender:  sender,
		tq:      tq,
	}
	app.registerRoutes(rc)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

var processStart = time.Now()
