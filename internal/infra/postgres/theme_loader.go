package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"jsquiz-service/internal/domain"
	"jsquiz-service/internal/infra/files"
)

// ThemeLoader loads question bank JSONB from Postgres.
type ThemeLoader struct {
	pool *pgxpool.Pool
}

func NewThemeLoader(pool *pgxpool.Pool) *ThemeLoader {
	return &ThemeLoader{pool: pool}
}

func (l *ThemeLoader) LoadTheme(ctx context.Context, name string) (domain.QuestionSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM themes WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, fmt.Errorf("%w: %q", domain.ErrThemeNotFound, name)
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load theme: %w", err)
	}
	set, err := files.Decode(raw)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("theme %q: %w", name, err)
	}
	set.Theme = name
	return set, nil
}

func (l *ThemeLoader) ListThemes(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT name FROM themes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
