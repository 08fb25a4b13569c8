// internal/journal/store.go
// Package journal records finished listening sessions in SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ColonelBlimp/cwlistener/internal/cw"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrInvalidLimit indicates a non-positive list limit
var ErrInvalidLimit = errors.New("limit must be positive")

// timeLayout is fixed-width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Session is one journal row with its timing statistics.
type Session struct {
	ID        int64
	StartedAt time.Time
	EndedAt   time.Time
	WPM       float64
	Source    string
	Text      string
	Unknown   int
	Samples   int
	Stats     []cw.StatLine
}

// Duration returns how long the session ran.
func (s Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Store wraps SQLite access for session journals.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			wpm REAL NOT NULL,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			unknown_units INTEGER NOT NULL,
			samples INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_stats (
			session_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			mean REAL,
			count INTEGER NOT NULL,
			PRIMARY KEY (session_id, category)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and its timing statistics.
func (s *Store) InsertSession(ctx context.Context, sess Session) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, wpm, source, text, unknown_units, samples)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.StartedAt.UTC().Format(timeLayout),
		sess.EndedAt.UTC().Format(timeLayout),
		sess.WPM,
		sess.Source,
		sess.Text,
		sess.Unknown,
		sess.Samples,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_stats (session_id, category, mean, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare stats: %w", err)
	}
	defer stmt.Close()

	for _, line := range sess.Stats {
		mean := sql.NullFloat64{Float64: line.Mean, Valid: line.HasMean}
		if _, err = stmt.ExecContext(ctx, id, line.Category.String(), mean, line.Count); err != nil {
			return 0, fmt.Errorf("insert %s stats: %w", line.Category, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit session: %w", err)
	}
	return id, nil
}

// ListSessions returns up to limit sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, wpm, source, text, unknown_units, samples
		 FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess           Session
			started, ended string
		)
		if err := rows.Scan(&sess.ID, &started, &ended, &sess.WPM, &sess.Source, &sess.Text, &sess.Unknown, &sess.Samples); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if sess.EndedAt, err = time.Parse(timeLayout, ended); err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	for i := range sessions {
		stats, err := s.sessionStats(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Stats = stats
	}
	return sessions, nil
}

func (s *Store) sessionStats(ctx context.Context, id int64) ([]cw.StatLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, mean, count FROM session_stats WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]cw.StatLine)
	for rows.Next() {
		var (
			name string
			mean sql.NullFloat64
			line cw.StatLine
		)
		if err := rows.Scan(&name, &mean, &line.Count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		line.Mean, line.HasMean = mean.Float64, mean.Valid
		byName[name] = line
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}

	var lines []cw.StatLine
	for _, c := range cw.Categories() {
		if line, ok := byName[c.String()]; ok {
			line.Category = c
			lines = append(lines, line)
		}
	}
	return lines, nil
}
