package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"trail-arena/internal/api"
	"trail-arena/internal/config"
	"trail-arena/internal/controller"
	"trail-arena/internal/game"
	"trail-arena/internal/room"
	"trail-arena/internal/session"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  TRAIL ARENA - GAME SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server
	limitsCfg := appConfig.Limits
	debugCfg := appConfig.Debug

	if serverCfg.PublicOrigin != "" {
		api.AddAllowedOrigin(serverCfg.PublicOrigin)
		log.Printf("🌐 Public origin: %s", serverCfg.PublicOrigin)
	}

	// Metric hooks, installed before anything connects or ticks.
	game.SetTickObserver(api.RecordTick)
	session.SetMessageObserver(api.IncrementWSMessages)

	if err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       debugCfg.Enabled,
		ListenAddr:    debugCfg.ListenAddr,
		BasicAuthUser: debugCfg.BasicAuthUser,
		BasicAuthPass: debugCfg.BasicAuthPass,
	}); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	repo := room.NewRepository()
	lobby := controller.NewLobby(repo)

	corsOrigins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if serverCfg.PublicOrigin != "" {
		corsOrigins = append(corsOrigins, serverCfg.PublicOrigin)
	}

	server := api.NewServer(repo, lobby, api.ServerConfig{
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: limitsCfg.RequestsPerSecond,
			Burst:             limitsCfg.Burst,
			CleanupInterval:   5 * time.Minute,
		},
		CORSOrigins: corsOrigins,
	})

	// Gauges refresh on a slow poll; everything else is event driven.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			api.UpdateRoomCount(len(repo.All()))
			api.UpdateSessionCount(lobby.SessionCount())
		}
	}()

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	log.Println("👋 Goodbye!")
}
