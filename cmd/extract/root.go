package main

import (
	"context"

	"github.com/spf13/cobra"
)

type extractor interface {
	Extract(ctx context.Context, inputPath, outputPath, format string) error
	VerifyInstalled(ctx context.Context) error
}

type extractorFactory func(ffmpegPath, ffprobePath string) extractor

func newRootCommand(newExtractor extractorFactory) *cobra.Command {
	var ffmpegPath string
	var ffprobePath string

	rootCmd := &cobra.Command{
		Use:           "extract",
		Short:         "Extract audio tracks from local video files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	rootCmd.PersistentFlags().StringVar(&ffprobePath, "ffprobe", "", "Path to the ffprobe binary (defaults to the one next to ffmpeg)")

	build := func() extractor { return newExtractor(ffmpegPath, ffprobePath) }
	rootCmd.AddCommand(newAudioCommand(build))
	rootCmd.AddCommand(newVerifyCommand(build))

	return rootCmd
}
