package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCommand(build func() extractor) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that ffmpeg can be executed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := build().VerifyInstalled(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ffmpeg OK")
			return nil
		},
	}
}
