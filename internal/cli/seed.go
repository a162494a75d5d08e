package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"jsquiz-service/data"
	"jsquiz-service/internal/config"
	"jsquiz-service/internal/domain"
	"jsquiz-service/internal/infra/files"
	"jsquiz-service/internal/infra/postgres"
)

// NewSeedCmd upserts the theme files into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load theme JSON files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of theme files (defaults to quiz.dataDir, then the built-in themes)")
	return cmd
}

func runSeed(ctx context.Context, configPath, dir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.Quiz.DataDir
	}

	loader := files.NewThemeLoader(data.Themes)
	if dir != "" {
		loader = files.NewThemeLoader(os.DirFS(dir))
	}
	names, err := loader.ListThemes(ctx)
	if err != nil {
		return err
	}
	sets := make([]domain.QuestionSet, 0, len(names))
	for _, name := range names {
		set, err := loader.LoadTheme(ctx, name)
		if err != nil {
			return fmt.Errorf("theme %q: %w", name, err)
		}
		sets = append(sets, set)
	}

	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	db := openBun(cfg.Postgres.URL)
	defer db.Close()

	if err := postgres.SeedThemes(ctx, db, sets); err != nil {
		return err
	}
	log.Printf("seeded %d themes", len(sets))
	return nil
}
