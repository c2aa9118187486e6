package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/replay"
)

var (
	replaySession string
	replayOut     string
	replayLimit   int
)

var replayCmd = &cobra.Command{
	Use:   "replay [fixture.json...]",
	Short: "Replay fixtures or a logged session through the controller",
	Long: `Fixture mode replays each JSON fixture and compares every directive with
the expected results. Session mode (--session) exports the session's turn log
as a fixture, optionally writing it to --out, and replays it.

Exits non-zero when any directive drifted.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replaySession, "session", "", "Export and replay this session's turn log")
	replayCmd.Flags().StringVar(&replayOut, "out", "", "Write the exported fixture to this path (session mode)")
	replayCmd.Flags().IntVar(&replayLimit, "parallel", 4, "Fixtures replayed at once")
	replayCmd.Flags().BoolVar(&jsonOut, "json", false, "Output reports as JSON")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replaySession == "" && len(args) == 0 {
		return errors.New("give fixture files or --session")
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	paths := args
	if replaySession != "" {
		records, err := a.turnLog.Records(ctx, replaySession)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no turns logged for session %s", replaySession)
		}
		out := replayOut
		if out == "" {
			dir, err := os.MkdirTemp("", "interviewer-replay-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)
			out = filepath.Join(dir, replaySession+".json")
		}
		f := replay.ExportFixture("session "+replaySession, records)
		if err := replay.WriteFixture(out, f); err != nil {
			return err
		}
		if replayOut != "" {
			fmt.Fprintf(os.Stderr, "exported %d turns to %s\n", len(records), out)
		}
		paths = append(paths, out)
	}

	reports, err := replay.RunFixtures(ctx, paths, a.classifier, replayLimit)
	if err != nil {
		return err
	}
	if jsonOut {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		printReports(reports)
	}

	for _, r := range reports {
		if !r.Passed() {
			return errors.New("replay drifted from expected directives")
		}
	}
	return nil
}

func printReports(reports []replay.Report) {
	for _, r := range reports {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		s := r.Summary
		fmt.Printf("%s  %s\n", status, r.Path)
		if r.Description != "" {
			fmt.Printf("      %s\n", r.Description)
		}
		fmt.Printf("      turns=%d deepen=%d ack=%d transition=%d (forced %d) recover=%d end=%d errors=%d final=%s\n",
			s.TotalTurns, s.Deepenings, s.Acks, s.Transitions, s.Forced, s.Recoveries, s.Ends, s.Errors, s.FinalStage)
		for _, m := range r.Mismatches {
			fmt.Printf("      %s\n", m)
		}
	}
}
