package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>...",
	Short: "Archive sessions now, finished or not",
	Long: `Writes the archive document of each session to the configured archive
(archive.kind file or s3) under the "manual" prefix. Sessions are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			where, err := a.svc.Export(ctx, id)
			if err != nil {
				return fmt.Errorf("export %s: %w", id, err)
			}
			fmt.Printf("%s  %s\n", id, where)
		}
		return nil
	},
}
