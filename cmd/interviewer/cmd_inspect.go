package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/logging"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
)

var inspectLast int

var inspectCmd = &cobra.Command{
	Use:   "inspect [session-id]",
	Short: "List sessions, or show one session's progress and turn log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			return runDetailMode(ctx, a, args[0])
		}
		return runListMode(ctx, a)
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "Show the N most recently updated sessions")
	inspectCmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON instead of a table")
}

// #region list-mode

type listRow struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	Stage        string `json:"stage"`
	Depth        int    `json:"depth"`
	Completeness int    `json:"completeness"`
	Turn         int    `json:"turn"`
	Terminated   bool   `json:"terminated"`
	UpdatedAt    string `json:"updated_at"`
}

func runListMode(ctx context.Context, a *app) error {
	sessions, err := a.store.List(ctx, inspectLast)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]listRow, len(sessions))
	for i, s := range sessions {
		rows[i] = toListRow(s)
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-36s  %-12s  %-14s  %5s  %5s  %4s  %-5s  %s\n",
		"Session", "User", "Stage", "Depth", "Compl", "Turn", "Done", "Updated")
	fmt.Printf("%-36s+-%-12s+-%-14s+-%5s+-%5s+-%4s+-%-5s+-%s\n",
		"------------------------------------", "------------", "--------------", "-----", "-----", "----", "-----", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-36s  %-12s  %-14s  %5d  %4d%%  %4d  %-5v  %s\n",
			r.SessionID, truncate(r.UserID, 12), r.Stage, r.Depth, r.Completeness, r.Turn, r.Terminated, r.UpdatedAt)
	}
	return nil
}

func toListRow(s *session.Session) listRow {
	return listRow{
		SessionID:    s.ID,
		UserID:       s.UserID,
		Stage:        string(s.Stage),
		Depth:        s.Depth,
		Completeness: s.Completeness(),
		Turn:         s.Turn,
		Terminated:   s.Terminated,
		UpdatedAt:    s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// #endregion list-mode

// #region detail-mode

type detailView struct {
	Session listRow              `json:"session"`
	Report  string               `json:"report"`
	Turns   []logging.TurnRecord `json:"turns"`
}

func runDetailMode(ctx context.Context, a *app, id string) error {
	sess, err := a.svc.Session(ctx, id)
	if err != nil {
		return err
	}
	report, err := a.svc.Status(ctx, id)
	if err != nil {
		return err
	}
	records, err := a.turnLog.Records(ctx, id)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(detailView{Session: toListRow(sess), Report: report, Turns: records})
	}

	fmt.Printf("%s\n\n", report)
	if len(records) == 0 {
		fmt.Println("no turns logged")
		return nil
	}
	fmt.Printf("%4s  %-14s  %5s  %-24s  %-13s  %-14s  %5s  %s\n",
		"Turn", "Stage", "Depth", "Directive", "Probe/Recov", "Next stage", "Compl", "Note")
	fmt.Printf("%4s+-%-14s+-%5s+-%-24s+-%-13s+-%-14s+-%5s+-%s\n",
		"----", "--------------", "-----", "------------------------", "-------------", "--------------", "-----", "----------")
	for _, r := range records {
		d := r.Directive
		detail := string(d.Probe)
		if d.Recovery != "" {
			detail = string(d.Recovery)
		}
		note := ""
		switch {
		case r.ClassifierError != "":
			note = "fallback: " + r.ClassifierError
		case r.Fallback:
			note = "fallback"
		case d.Forced:
			note = "forced"
		}
		fmt.Printf("%4d  %-14s  %5d  %-24s  %-13s  %-14s  %4d%%  %s\n",
			r.Turn, r.StageBefore, r.DepthBefore, d.Kind, detail, d.Stage, d.Completeness, note)
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// #endregion helpers
