package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Archive and remove sessions idle past the session timeout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.svc.ReapExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("reaped %d session(s) idle longer than %s\n", n, cfg.Interview.SessionTimeout)
		return nil
	},
}
