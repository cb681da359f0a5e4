package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mines_arena/internal/config"
	"mines_arena/internal/db"
	httpServer "mines_arena/internal/http"
	"mines_arena/internal/http/handlers"
	"mines_arena/internal/http/middleware"
	"mines_arena/internal/lock"
	"mines_arena/internal/logger"
	"mines_arena/internal/repository"
	"mines_arena/internal/scheduler"
	"mines_arena/internal/service"
	"mines_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

var version = "dev"

const redisLockTTL = 15 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	checks := make(map[string]handlers.Pinger)

	var store repository.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
	case config.StoreMongo:
		mdb := db.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
		ms := repository.NewMongoStore(mdb)
		if err := ms.EnsureIndexes(context.Background()); err != nil {
			logger.Fatal("failed to create mongodb indexes", "error", err)
		}
		store = ms
	default:
		store = repository.NewMemoryStore()
		logger.Warn("using in-memory store, rooms are lost on restart")
	}
	checks["store"] = store

	var locks lock.Locker = lock.NewKeyedMutex()
	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
		locks = lock.NewRedisLocker(rdb, redisLockTTL)
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	middleware.UseRedis(rdb)

	clock := clockwork.NewRealClock()
	sched, err := scheduler.New(clock, logger.Component("scheduler"))
	if err != nil {
		logger.Fatal("failed to create scheduler", "error", err)
	}
	sched.Start()

	hub := ws.NewHub()
	deps := service.Deps{
		Store:     store,
		Locks:     locks,
		Scheduler: sched,
		Clock:     clock,
		Events:    hub,
		Limits:    service.GameLimits{MinBet: cfg.MinBet, MaxBet: cfg.MaxBet},
	}
	rooms := service.NewRoomService(deps)
	games := service.NewGameService(deps)

	restored, err := rooms.RestoreSchedules(context.Background())
	if err != nil {
		logger.Fatal("failed to restore room timers", "error", err)
	}
	logger.Info("room timers restored", "rooms", restored)

	err = sched.Every("purge-closed-rooms", cfg.RoomSweepEvery, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := rooms.PurgeClosed(ctx, cfg.RoomRetention); err != nil {
			logger.Error("room purge failed", "error", err)
		} else if n > 0 {
			logger.Info("closed rooms purged", "rooms", n)
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule room purge", "error", err)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Rooms:   rooms,
		Games:   games,
		Hub:     hub,
		Checks:  checks,
		Config:  cfg,
		Version: version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", "error", err)
	}

	logger.Info("server exited")
}
