package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"audio_extraction/config"
	"audio_extraction/internal/worker"
)

func main() {
	_ = godotenv.Load()

	// Configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}

	// Run
	ctx := context.Background()
	w := worker.NewWorker(cfg)
	if err := w.Run(ctx, cfg); err != nil {
		log.Fatalf("Worker error: %s", err)
	}
}
