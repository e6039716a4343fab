package main

import (
	"context"
	"log"
	"time"

	"marker-map/simulator"
)

func main() {
	config := simulator.SimConfig{
		NumUsers:         20,
		NumAdmins:        1,
		SimulationTime:   5 * time.Minute,
		SubmitFrequency:  30.0,
		ConfirmFrequency: 60.0,
		CommentFrequency: 40.0,
		RateFrequency:    40.0,
		EngineURL:        "http://localhost:8080",
	}

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Number of users: %d (%d admins)", config.NumUsers, config.NumAdmins)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Submit frequency: %.2f markers/user/hour", config.SubmitFrequency)
	log.Printf("- Confirm frequency: %.2f confirms/user/hour", config.ConfirmFrequency)
	log.Printf("- Comment frequency: %.2f comments/user/hour", config.CommentFrequency)
	log.Printf("NOTE: moderation requires the admin client ids (sim_user_0..) in ALLOWED_ADMINS on the server")

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	metrics := sim.GetMetrics()
	log.Printf("\nSimulation completed. Final metrics:")
	log.Printf("- Total users: %d", metrics.TotalUsers)
	log.Printf("- Total requests: %d (%d failed)", metrics.TotalRequests, metrics.FailedRequests)
	log.Printf("- Markers submitted: %d (moderated: %d)", metrics.TotalMarkers, metrics.ModeratedMarkers)
	log.Printf("- Confirms: %d, comments: %d, ratings: %d", metrics.TotalConfirms, metrics.TotalComments, metrics.TotalRatings)
	log.Printf("- Average latency: %v", metrics.AverageLatency)
}
