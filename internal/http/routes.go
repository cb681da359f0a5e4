package http

import (
	"time"

	"mines_arena/internal/config"
	"mines_arena/internal/http/handlers"
	"mines_arena/internal/http/middleware"
	"mines_arena/internal/logger"
	"mines_arena/internal/service"
	"mines_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps wires the HTTP layer to the engine.
type Deps struct {
	Rooms   *service.RoomService
	Games   *service.GameService
	Hub     *ws.Hub
	Checks  map[string]handlers.Pinger
	Config  *config.Config
	Version string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Rooms, d.Games)
	healthHandler := handlers.NewHealthHandler(d.Checks, d.Version)

	r.Use(middleware.Metrics(), middleware.RequestLogger(logger.Component("access")))

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// defaults match config.Load
	apiRateLimit := 120
	apiRateWindow := time.Minute
	gameRateLimit := 60
	gameRateWindow := time.Minute
	allowedOrigin := ""
	if d.Config != nil {
		apiRateLimit = d.Config.APIRateLimit
		apiRateWindow = d.Config.APIRateWindow
		gameRateLimit = d.Config.GameRateLimit
		gameRateWindow = d.Config.GameRateWindow
		allowedOrigin = d.Config.AllowedOrigin
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	registerAPIRoutes(v1, h, gameRateLimit, gameRateWindow)

	// Room event stream
	if d.Hub != nil {
		r.GET("/ws/rooms/:code", ws.HandleWS(d.Hub, d.Rooms, allowedOrigin))
	}
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, gameRateLimit int, gameRateWindow time.Duration) {
	auth := middleware.JWT()
	gameRL := middleware.GameRateLimit(gameRateLimit, gameRateWindow)

	api.GET("/me", auth, h.Me)
	api.GET("/game/mines/info", h.MinesInfo)

	// Rooms
	admin := api.Group("/admin", auth, middleware.RequireRole(service.RoleAdmin, service.RoleOwner))
	{
		admin.POST("/rooms", h.CreateRoom)
		admin.POST("/rooms/:id/close", h.CloseRoom)
	}
	api.POST("/rooms/join", auth, h.JoinRoom)
	api.POST("/rooms/:code/games/start", auth, gameRL, h.StartRoomGame)
	api.GET("/rooms/:code/leaderboard", h.GetLeaderboard)

	// Games
	api.POST("/games/start", auth, gameRL, h.StartGame)
	api.POST("/games/:id/move", auth, gameRL, h.Move)
	api.POST("/games/:id/cashout", auth, h.Cashout)
	api.GET("/games/:id", auth, h.GetGame)
	api.GET("/games/:id/player", auth, h.GamePlayer)
}
