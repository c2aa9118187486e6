package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
)

// #region schema
const turnLogSchema = `
CREATE TABLE IF NOT EXISTS turn_log (
	entry_id      TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	turn          INTEGER NOT NULL,
	trigger_type  TEXT NOT NULL,
	record_json   TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS turn_log_session_idx ON turn_log (session_id, turn);
`
// #endregion schema

// #region turn-log
// TurnLog appends controller decisions to the turn_log table.
type TurnLog struct {
	db     *sql.DB
	driver string
}

// NewTurnLog creates the turn_log table on db if needed. driver selects
// the placeholder dialect ("sqlite" or "pgx").
func NewTurnLog(db *sql.DB, driver string) (*TurnLog, error) {
	for _, stmt := range strings.Split(turnLogSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("migrate turn_log: %w", err)
		}
	}
	return &TurnLog{db: db, driver: driver}, nil
}
// #endregion turn-log

// #region log-turn
// Log writes a turn entry.
func (l *TurnLog) Log(ctx context.Context, entry TurnEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, session.Rebind(l.driver,
		`INSERT INTO turn_log (entry_id, session_id, turn, trigger_type, record_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		uuid.New().String(),
		entry.SessionID,
		entry.Turn,
		entry.TriggerType,
		nullIfEmpty(entry.RecordJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// LogRecord serializes rec and writes it as a turn entry.
func (l *TurnLog) LogRecord(ctx context.Context, rec TurnRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}
	trigger := "turn"
	if rec.Fallback {
		trigger = "fallback"
	}
	return l.Log(ctx, TurnEntry{
		SessionID:   rec.SessionID,
		Turn:        rec.Turn,
		TriggerType: trigger,
		RecordJSON:  string(body),
		Decision:    string(rec.Directive.Kind),
		Reason:      reason(rec),
	})
}
// #endregion log-turn

// #region load
// Records returns the turn records of sessionID in turn order.
func (l *TurnLog) Records(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	rows, err := l.db.QueryContext(ctx, session.Rebind(l.driver,
		`SELECT record_json FROM turn_log WHERE session_id = ? AND record_json IS NOT NULL ORDER BY turn, created_at`),
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turn log: %w", err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan turn log: %w", err)
		}
		var rec TurnRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decode turn record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
// #endregion load

// #region helpers
func reason(rec TurnRecord) string {
	d := rec.Directive
	switch {
	case rec.ClassifierError != "":
		return rec.ClassifierError
	case d.Recovery != "":
		return string(d.Recovery)
	case d.Forced:
		return "forced: " + strings.Join(d.Unmet, ", ")
	case len(d.Unmet) > 0:
		return "unmet: " + strings.Join(d.Unmet, ", ")
	}
	return ""
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
