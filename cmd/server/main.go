package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"audio_extraction/config"
	"audio_extraction/internal/server"

	_ "audio_extraction/cmd/server/docs"
)

// @title           Video to Audio Conversion API
// @version         1.0
// @description     API service to extract audio from video files.

// @license.name  MIT

// @host      localhost:8000
// @BasePath  /

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}

	// Run
	ctx := context.Background()
	s := server.NewServer(cfg)
	if err := s.Run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %s", err)
	}
}
