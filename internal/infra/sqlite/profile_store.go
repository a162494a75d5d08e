package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jsquiz-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- timestamps are unix milliseconds
CREATE TABLE IF NOT EXISTS profiles (
    username TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    position INTEGER NOT NULL,
    theme TEXT NOT NULL,
    score INTEGER NOT NULL,
    total INTEGER NOT NULL,
    total_time_seconds INTEGER NOT NULL,
    played_at INTEGER NOT NULL,
    FOREIGN KEY (username) REFERENCES profiles(username) ON DELETE CASCADE
);
`

// ProfileStore persists profiles and their quiz history in a SQLite file.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(ctx context.Context, dsn string) (*ProfileStore, error) {
	if dsn == "" {
		dsn = "file:jsquiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &ProfileStore{db: db}, nil
}

func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// LoadProfile returns the stored profile, creating an empty one on first use.
func (s *ProfileStore) LoadProfile(ctx context.Context, username string) (domain.Profile, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (username, created_at) VALUES (?, ?)`,
		username, time.Now().UnixMilli()); err != nil {
		return domain.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return s.history(ctx, username)
}

// FindProfile returns the stored profile or ErrProfileNotFound; it never creates one.
func (s *ProfileStore) FindProfile(ctx context.Context, username string) (domain.Profile, error) {
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM profiles WHERE username = ?`, username).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return s.history(ctx, username)
}

func (s *ProfileStore) history(ctx context.Context, username string) (domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT theme, score, total, total_time_seconds, played_at
		 FROM history WHERE username = ? ORDER BY position`, username)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	profile := domain.NewProfile(username)
	for rows.Next() {
		var (
			entry    domain.HistoryEntry
			playedAt int64
		)
		if err := rows.Scan(&entry.Theme, &entry.Score, &entry.Total, &entry.TotalTimeSeconds, &playedAt); err != nil {
			return domain.Profile{}, fmt.Errorf("scan history: %w", err)
		}
		entry.PlayedAt = time.UnixMilli(playedAt).UTC()
		profile.History = append(profile.History, entry)
	}
	return profile, rows.Err()
}

// SaveProfile replaces the stored history with the profile's.
func (s *ProfileStore) SaveProfile(ctx context.Context, profile domain.Profile) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (username, created_at) VALUES (?, ?)`,
		profile.Username, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM history WHERE username = ?`, profile.Username); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for i, entry := range profile.History {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO history (username, position, theme, score, total, total_time_seconds, played_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			profile.Username, i, entry.Theme, entry.Score, entry.Total, entry.TotalTimeSeconds,
			entry.PlayedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return tx.Commit()
}
