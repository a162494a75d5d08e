package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"jsquiz-service/internal/config"
)

// NewThemesCmd prints the themes players can choose from.
func NewThemesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List available quiz themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			st, err := buildStack(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			themes, err := st.service.Themes(cmd.Context())
			if err != nil {
				return err
			}
			for _, theme := range themes {
				fmt.Fprintln(cmd.OutOrStdout(), theme)
			}
			return nil
		},
	}
}
