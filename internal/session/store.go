package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	stage         TEXT NOT NULL,
	terminated    INTEGER NOT NULL DEFAULT 0,
	state_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id, terminated);
CREATE INDEX IF NOT EXISTS sessions_updated_idx ON sessions (updated_at);

CREATE TABLE IF NOT EXISTS messages (
	message_id    TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	role          TEXT NOT NULL,
	stage         TEXT NOT NULL,
	body          TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_session_idx ON messages (session_id, seq);
`

// #endregion schema

// timeFormat is fixed width so stored timestamps compare as strings.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// #region store-struct

// SQLStore keeps sessions in SQLite or Postgres.
type SQLStore struct {
	db         *sql.DB
	driver     string
	maxHistory int
	log        *zap.Logger
}

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithMaxHistory bounds the stored transcript per session.
func WithMaxHistory(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.log = l.Named("store")
		}
	}
}

// #endregion store-struct

// #region constructor

// Open connects to the database and runs migrations. driver is "sqlite"
// (dsn is a file path or ":memory:") or "pgx" (dsn is a Postgres URL).
func Open(driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPgx {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &SQLStore{db: db, driver: driver, maxHistory: DefaultMaxHistory, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}

	if driver == DriverSQLite {
		// database/sql pools connections and every :memory: connection is a
		// separate database.
		db.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.Exec(p); err != nil {
				db.Close()
				return nil, fmt.Errorf("pragma: %w", err)
			}
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	s.log.Debug("store opened", zap.String("driver", driver))
	return s, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver reports the SQL dialect in use.
func (s *SQLStore) Driver() string {
	return s.driver
}

// #region dialect

// Rebind rewrites ? placeholders to $n when driver is pgx.
func Rebind(driver, query string) string {
	if driver != DriverPgx {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) q(query string) string {
	return Rebind(s.driver, query)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion dialect

// #region sessions

// Create inserts a new session.
func (s *SQLStore) Create(ctx context.Context, sess *Session) error {
	body, err := sess.marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(
		`INSERT INTO sessions (session_id, user_id, stage, terminated, state_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.UserID, string(sess.Stage), boolInt(sess.Terminated), body,
		formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

// Load returns the session with id or ErrNotFound.
func (s *SQLStore) Load(ctx context.Context, id string) (*Session, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT state_json FROM sessions WHERE session_id = ?`), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return decodeSession(body)
}

// Save overwrites an existing session. Saving the same value twice leaves
// the same stored row.
func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	body, err := sess.marshal()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE sessions SET stage = ?, terminated = ?, state_json = ?, updated_at = ?
		 WHERE session_id = ?`),
		string(sess.Stage), boolInt(sess.Terminated), body, formatTime(sess.UpdatedAt), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sess.ID)
	}
	return nil
}

// Delete removes a session and its transcript. Deleting a missing session
// is not an error.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSession(ctx, tx, s.driver, id); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteSession(ctx context.Context, tx *sql.Tx, driver, id string) error {
	if _, err := tx.ExecContext(ctx, Rebind(driver, `DELETE FROM messages WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("delete messages %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, Rebind(driver, `DELETE FROM sessions WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// List returns up to limit sessions, most recently updated first.
func (s *SQLStore) List(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT state_json FROM sessions ORDER BY updated_at DESC, session_id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return scanSessions(rows)
}

// ActiveForUser returns the user's most recent unfinished session or
// ErrNotFound.
func (s *SQLStore) ActiveForUser(ctx context.Context, userID string) (*Session, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT state_json FROM sessions WHERE user_id = ? AND terminated = 0
		 ORDER BY updated_at DESC LIMIT 1`), userID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active session for %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("active session for %s: %w", userID, err)
	}
	return decodeSession(body)
}

// Expired returns unfinished sessions last updated before cutoff, oldest
// first.
func (s *SQLStore) Expired(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT state_json FROM sessions WHERE terminated = 0 AND updated_at < ? ORDER BY updated_at`), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("query expired: %w", err)
	}
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess, err := decodeSession(body)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func decodeSession(body string) (*Session, error) {
	var sess Session
	if err := json.Unmarshal([]byte(body), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.ProbeUse == nil {
		sess.ProbeUse = make(map[controller.Probe]int)
	}
	if sess.Scores == nil {
		sess.Scores = make(map[stage.Stage]int)
	}
	if sess.Insights == nil {
		sess.Insights = make(map[stage.Stage]*Insights)
	}
	return &sess, nil
}

// #endregion sessions
