package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/wanderstay/staypoints/config"
	"github.com/wanderstay/staypoints/controllers"
	"github.com/wanderstay/staypoints/middleware"
	"github.com/wanderstay/staypoints/services/points"
	"github.com/wanderstay/staypoints/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
// Ledger metrics are registered on reg and served from /metrics.
func SetupRouter(db *gorm.DB, reg *prometheus.Registry) (*gin.Engine, error) {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := NewPointsService(db, cfg, reg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file, apart from the application log
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin logger unavailable, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	pointsController := controllers.NewPointsController(svc, utils.Logger.Named("points"))

	api := r.Group("/api/v1")
	{
		pts := api.Group("/points", middleware.AuthRequired(), middleware.RateLimitMiddleware())
		pts.GET("/balance", pointsController.Balance)
		pts.POST("/checkin", pointsController.CheckIn)
		pts.GET("/history", pointsController.History)
		pts.GET("/stats", pointsController.Stats)
		pts.POST("/redeem", pointsController.Redeem)

		admin := api.Group("/admin", middleware.AuthRequired(), middleware.AdminRequired())
		admin.POST("/points/award", pointsController.Award)
		admin.GET("/points/:userId/audit", pointsController.Audit)
	}

	return r, nil
}

// NewPointsService builds the ledger from configuration. The Redis check-in guard is
// attached only when Redis is enabled.
func NewPointsService(db *gorm.DB, cfg config.AppConfig, reg prometheus.Registerer) (*points.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("points timezone: %w", err)
	}
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}

	bonuses := make(points.BonusSchedule, 0, len(cfg.StreakBonuses))
	for _, b := range cfg.StreakBonuses {
		bonuses = append(bonuses, points.BonusRule{Every: b.Every, At: b.At, Bonus: b.Bonus})
	}

	opts := points.Options{
		BasePoints:      int64(cfg.CheckInBasePoints),
		Bonuses:         bonuses,
		MaxHistoryLimit: cfg.HistoryMaxLimit,
		Location:        loc,
		Metrics:         points.NewPrometheusRecorder(reg),
		Logger:          utils.Logger.Named("points"),
	}
	if rc := utils.GetRedis(); rc != nil {
		opts.Guard = points.NewRedisGuard(rc)
	}
	return points.NewService(db, node, opts)
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok"}
		healthy := true
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c) != nil {
			status["database"] = "unreachable"
			healthy = false
		}
		if rc := utils.GetRedis(); rc != nil {
			status["redis"] = "ok"
			// redis is optional; degraded does not fail the probe
			if err := rc.Ping(c).Err(); err != nil {
				status["redis"] = "degraded"
			}
		}

		if !healthy {
			utils.Respond(ctx, http.StatusServiceUnavailable, 50300, "unhealthy", status)
			return
		}
		utils.Success(ctx, status)
	}
}
