package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"audio_extraction/pkg/audio_extractor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(func(ffmpegPath, ffprobePath string) extractor {
		return audio_extractor.NewAudioExtractor(
			audio_extractor.WithFFmpegPath(ffmpegPath),
			audio_extractor.WithFFprobePath(ffprobePath),
		)
	})
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
