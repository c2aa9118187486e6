package logging

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region helpers
func setupLog(t *testing.T) (*sql.DB, *TurnLog) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	l, err := NewTurnLog(db, "sqlite")
	if err != nil {
		t.Fatalf("NewTurnLog: %v", err)
	}
	return db, l
}

// #endregion helpers

// #region log-tests
func TestLog_Success(t *testing.T) {
	db, l := setupLog(t)

	entry := TurnEntry{
		SessionID:   "s1",
		Turn:        1,
		TriggerType: "turn",
		RecordJSON:  `{"turn":1}`,
		Decision:    "ASK_DEEPENING",
		Reason:      "unmet: examples",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := l.Log(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM turn_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var sessionID, decision, created string
	db.QueryRow("SELECT session_id, decision, created_at FROM turn_log").Scan(&sessionID, &decision, &created)
	if sessionID != "s1" {
		t.Errorf("expected session_id 's1', got %q", sessionID)
	}
	if decision != "ASK_DEEPENING" {
		t.Errorf("expected decision 'ASK_DEEPENING', got %q", decision)
	}
	if created != "2026-01-01T00:00:00Z" {
		t.Errorf("expected created_at '2026-01-01T00:00:00Z', got %q", created)
	}
}

func TestLog_ZeroCreatedAtAndNulls(t *testing.T) {
	db, l := setupLog(t)

	if err := l.Log(context.Background(), TurnEntry{SessionID: "s2", TriggerType: "turn", Decision: "RECOVER"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var created string
	var record, reason sql.NullString
	db.QueryRow("SELECT created_at, record_json, reason FROM turn_log").Scan(&created, &record, &reason)
	if created == "" {
		t.Error("expected created_at to be set automatically")
	}
	if record.Valid || reason.Valid {
		t.Errorf("expected NULL record and reason, got %v %v", record, reason)
	}
}

func TestNewTurnLog_Idempotent(t *testing.T) {
	db, _ := setupLog(t)
	if _, err := NewTurnLog(db, "sqlite"); err != nil {
		t.Fatalf("second migration: %v", err)
	}
}

// #endregion log-tests

// #region record-tests
func TestLogRecord_RoundTrip(t *testing.T) {
	db, l := setupLog(t)
	ctx := context.Background()

	recs := []TurnRecord{
		{
			TurnID: "t1", SessionID: "s1", Turn: 1, Text: "I run the support desk.",
			StageBefore: stage.Greeting, DepthBefore: 1,
			Classified: classify.ClassifiedResponse{WordCount: 5, Length: classify.LengthShort, OnTopic: true},
			Directive:  controller.Directive{Kind: controller.AskDeepening, Probe: controller.ProbeExample, Stage: stage.Greeting, Depth: 2, Unmet: []string{"examples"}},
		},
		{
			TurnID: "t2", SessionID: "s1", Turn: 2,
			StageBefore: stage.Greeting, DepthBefore: 2,
			Classified:      classify.FallbackResponse(),
			Fallback:        true,
			ClassifierError: "classifier timeout",
			Directive:       controller.Directive{Kind: controller.AskDeepening, Probe: controller.ProbeStepByStep, Stage: stage.Greeting, Depth: 2},
		},
		{TurnID: "other", SessionID: "s9", Turn: 1, Directive: controller.Directive{Kind: controller.Recover}},
	}
	for _, r := range recs {
		if err := l.LogRecord(ctx, r); err != nil {
			t.Fatalf("LogRecord: %v", err)
		}
	}

	got, err := l.Records(ctx, "s1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Directive.Probe != controller.ProbeExample || got[1].Turn != 2 {
		t.Errorf("records out of order: %+v", got)
	}
	if !got[1].Fallback || got[1].Classified != classify.FallbackResponse() {
		t.Errorf("fallback record lost: %+v", got[1])
	}

	var trigger, reasonText string
	db.QueryRow("SELECT trigger_type, reason FROM turn_log WHERE turn = 2").Scan(&trigger, &reasonText)
	if trigger != "fallback" {
		t.Errorf("expected trigger 'fallback', got %q", trigger)
	}
	if reasonText != "classifier timeout" {
		t.Errorf("expected reason 'classifier timeout', got %q", reasonText)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		rec  TurnRecord
		want string
	}{
		{TurnRecord{}, ""},
		{TurnRecord{Directive: controller.Directive{Recovery: controller.RecoverConfusion}}, "confusion"},
		{TurnRecord{Directive: controller.Directive{Forced: true, Unmet: []string{"examples", "depth"}}}, "forced: examples, depth"},
		{TurnRecord{Directive: controller.Directive{Unmet: []string{"completeness"}}}, "unmet: completeness"},
	}
	for _, tt := range tests {
		if got := reason(tt.rec); got != tt.want {
			t.Errorf("reason(%+v) = %q, want %q", tt.rec.Directive, got, tt.want)
		}
	}
}

// #endregion record-tests

// #region logger-tests
func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"debug", "text", false},
		{"", "text", false},
		{"WARN", "JSON", false},
		{"loud", "json", true},
	}
	for _, tt := range tests {
		l, err := NewLogger(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewLogger(%q, %q) err = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if l != nil {
			_ = l.Sync()
		}
	}
}

// #endregion logger-tests
