package main

import (
	"fmt"
	"log"
	"net/http"

	"marker-map/internal/config"
	"marker-map/internal/database"
	"marker-map/internal/engine"
	"marker-map/internal/handlers"
	"marker-map/internal/middleware"
	"marker-map/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	metrics := utils.NewMetricsCollector()

	// MongoDB is optional; without it the engine runs in memory.
	var mongodb *database.MongoDB
	if cfg.Database.URI != "" {
		mongodb, err = database.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
	} else {
		log.Println("MONGO_URL not set, running in-memory")
	}

	// Initialize actor system
	system := actor.NewActorSystem()

	// Initialize engine with actors
	markerEngine := engine.NewEngine(system, metrics, mongodb, cfg.Admin.Allowed)

	adminAuth := middleware.NewAdminAuth(cfg.Admin.JWTKey, cfg.Admin.KeyHash)

	server := handlers.NewServer(
		system,
		system.Root,
		markerEngine,
		metrics,
		mongodb,
		cfg.Admin,
		adminAuth,
	)

	cors := middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.AllowedOrigins))
	handler := cors(server.Routes())

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
