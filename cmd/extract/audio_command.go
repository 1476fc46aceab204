package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"audio_extraction/pkg/audio_extractor"
)

func newAudioCommand(build func() extractor) *cobra.Command {
	var format string
	var outputDir string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "audio <video>",
		Short: "Write the audio track of a video file next to it or into --output-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if !supportedFormat(format) {
				return fmt.Errorf("unsupported format %q (choose from %s)", format, strings.Join(audio_extractor.SupportedFormats(), ", "))
			}

			input := args[0]
			dir := outputDir
			if dir == "" {
				dir = filepath.Dir(input)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			output := filepath.Join(dir, base+"."+format)
			if output == filepath.Clean(input) {
				return fmt.Errorf("output %s would overwrite the input", output)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			if err := extractTo(ctx, build(), input, output, format); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mp3", "Output audio format")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the audio file (defaults to the video's directory)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Abort extraction after this long (0 disables)")

	return cmd
}

// extractTo writes into a temporary file beside output and renames it on success,
// so a failed run never touches an existing file at output.
func extractTo(ctx context.Context, ex extractor, input, output, format string) error {
	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*.partial")
	if err != nil {
		return fmt.Errorf("create temporary output: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("create temporary output: %w", err)
	}

	if err := ex.Extract(ctx, input, tmpPath, format); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move audio into place: %w", err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move audio into place: %w", err)
	}
	return nil
}

func supportedFormat(format string) bool {
	for _, f := range audio_extractor.SupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}
