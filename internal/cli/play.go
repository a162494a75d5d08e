package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"jsquiz-service/internal/config"
	"jsquiz-service/internal/transport/console"
)

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var username, theme string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runPlay(ctx, *configPath, username, theme, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "theme to play (prompted when empty)")
	return cmd
}

func runPlay(ctx context.Context, configPath, username, theme string, stdin io.Reader, out io.Writer) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	in := bufio.NewReader(stdin)
	if username == "" {
		if username, err = prompt(in, out, "username: "); err != nil {
			return err
		}
	}
	profile, err := st.service.Login(ctx, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "hello %s, %d quizzes played\n", profile.Username, len(profile.History))

	if theme == "" {
		themes, err := st.service.Themes(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "themes: %s\n", strings.Join(themes, ", "))
		if theme, err = prompt(in, out, "theme: "); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "answer with option numbers (`0 2`), `s` to skip, `q` to quit")
	_, err = console.Play(ctx, st.service, profile.Username, theme, in, out)
	if errors.Is(err, console.ErrQuit) {
		return nil
	}
	return err
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
