package main

import (
	"context"
	"net/http"
	"os"

	"github.com/campushire/ranking-backend/internal/api"
	"github.com/campushire/ranking-backend/internal/cache"
	"github.com/campushire/ranking-backend/internal/config"
	"github.com/campushire/ranking-backend/internal/database"
	"github.com/campushire/ranking-backend/internal/handler"
	"github.com/campushire/ranking-backend/internal/logger"
	"github.com/campushire/ranking-backend/internal/middleware"
	"github.com/campushire/ranking-backend/internal/ranking"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Could not load config: %v", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Error("Database connection failed: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Error("Migration failed: %v", err)
		os.Exit(1)
	}

	// Optional Redis page cache
	var pageCache ranking.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
		if err != nil {
			logger.Error("Redis connection failed: %v", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		pageCache = redisCache
	} else {
		logger.Info("REDIS_ADDR not set, leaderboard page cache disabled")
	}

	// Ranking engine over the Postgres stores
	engine := ranking.New(cfg, ranking.Stores{
		Events:    database.NewEventStore(db),
		Scores:    database.NewScoreStore(db),
		Scopes:    database.NewScopeStore(db),
		Users:     database.NewUserDirectory(db),
		Snapshots: database.NewSnapshotStore(db),
		Movements: database.NewMovementStore(db),
	}, pageCache)

	// Periodic rank table builds
	engine.StartScheduler(context.Background())

	// Initialize routes
	router := api.SetupRouter(handler.New(engine))

	// Wrap router with CORS middleware
	srv := middleware.CORSMiddleware(router)

	// Start server
	logger.Success("Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, srv); err != nil {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
}
