package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWindowCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show whether the booking window is open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			w, err := cfg.Window()
			if err != nil {
				return usageError(fmt.Errorf("booking: %w", err))
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return usageError(fmt.Errorf("invalid --at: %w", err))
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Window: %s\n", w)
			fmt.Fprintf(out, "Now:    %s\n", now.In(w.Loc).Format(time.RFC3339))
			if w.IsOpen(now) {
				fmt.Fprintln(out, "Open:   yes")
				return nil
			}
			fmt.Fprintln(out, "Open:   no")
			fmt.Fprintf(out, "Next:   %s\n", w.NextOpen(now).Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 time instead of now")
	return cmd
}
