package main

import (
	"time"

	"github.com/neuralttt/gameserver/api"
	"github.com/neuralttt/gameserver/auth"
	"github.com/neuralttt/gameserver/config"
	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/monitor"
	"github.com/neuralttt/gameserver/persistence"
	"github.com/neuralttt/gameserver/rpc"
	"github.com/neuralttt/gameserver/server"
	"github.com/neuralttt/gameserver/services"
	"github.com/neuralttt/gameserver/store"
	"github.com/neuralttt/gameserver/timer"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Log.File != "" {
		logger.InitWithFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}

	// Initialize Database
	var db persistence.Database
	switch cfg.Database.Driver {
	case "sql":
		db, err = persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	default:
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Info("Database connection successful.")

	// Initialize Game Store
	var gameStore store.GameStore
	switch cfg.Store.Backend {
	case "memory":
		gameStore = store.NewMemoryStore()
	default:
		gameStore, err = store.NewRedisStore(cfg.Store.Redis.URL, cfg.Store.RoomTTL)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to redis: %v", err)
		}
	}
	defer gameStore.Close()

	// Initialize Monitoring
	mon := monitor.NewMonitor("gameserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Auth + HTTP API
	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.RefreshSecret,
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
	)
	playerService := services.NewPlayerService(db)
	httpAPI := api.NewAPI(db, playerService, jwtManager, cfg.Server.AllowedOrigin)

	// Initialize Game Server
	gameServer := server.NewGameServer(
		cfg.Server.HTTPAddress,
		cfg.Server.AllowedOrigin,
		gameStore,
		db,
		jwtManager,
		mon,
		httpAPI.Router(),
	)

	// Initialize RPC Server
	adminService := rpc.NewAdminService(gameServer.PlayerService())
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, adminService)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Background jobs: reap rooms idle longer than the room TTL
	scheduler := timer.NewScheduler()
	defer scheduler.Stop()
	scheduler.Schedule(time.Minute, time.Minute, func() {
		gameServer.ReapIdleRooms(cfg.Store.RoomTTL)
	})

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
