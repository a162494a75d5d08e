package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"
	"jsquiz-service/internal/domain"
)

// SeedThemes upserts question banks into the themes table. Each set is validated first.
func SeedThemes(ctx context.Context, db bun.IDB, sets []domain.QuestionSet) error {
	for _, set := range sets {
		if set.Theme == "" {
			return fmt.Errorf("%w: theme name missing", domain.ErrMalformedTheme)
		}
		if err := set.Validate(); err != nil {
			return fmt.Errorf("seed %q: %w", set.Theme, err)
		}
		data, err := json.Marshal(domain.QuestionSet{Questions: set.Questions})
		if err != nil {
			return fmt.Errorf("marshal %q: %w", set.Theme, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO themes (name, data) VALUES (?, ?::jsonb)
			 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
			set.Theme, string(data)); err != nil {
			return fmt.Errorf("seed %q: %w", set.Theme, err)
		}
	}
	return nil
}
