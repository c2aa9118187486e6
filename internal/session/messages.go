package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region append

// AppendMessages adds msgs to the transcript of id and drops the oldest
// entries beyond the history bound.
func (s *SQLStore) AppendMessages(ctx context.Context, id string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, s.q(
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?`), id).Scan(&seq); err != nil {
		return fmt.Errorf("next seq %s: %w", id, err)
	}
	for _, m := range msgs {
		seq++
		created := m.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO messages (message_id, session_id, seq, role, stage, body, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			uuid.New().String(), id, seq, string(m.Role), string(m.Stage), m.Text, formatTime(created),
		)
		if err != nil {
			return fmt.Errorf("insert message %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, s.q(
		`DELETE FROM messages WHERE session_id = ? AND seq <= ?`), id, seq-int64(s.maxHistory)); err != nil {
		return fmt.Errorf("trim history %s: %w", id, err)
	}
	return tx.Commit()
}

// #endregion append

// #region read

// Messages returns the stored transcript of id, oldest first.
func (s *SQLStore) Messages(ctx context.Context, id string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT role, stage, body, created_at FROM messages WHERE session_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, fmt.Errorf("query messages %s: %w", id, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m              Message
			role, st, when string
		)
		if err := rows.Scan(&role, &st, &m.Text, &when); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = Role(role)
		m.Stage = stage.Stage(st)
		if m.CreatedAt, err = time.Parse(timeFormat, when); err != nil {
			return nil, fmt.Errorf("parse message time: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// #endregion read
