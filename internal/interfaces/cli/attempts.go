package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/spinbook/internal/db"
	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/infrastructure/config"
	"github.com/example/spinbook/internal/infrastructure/filelog"
	"github.com/example/spinbook/internal/infrastructure/postgres"
)

func newAttemptsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Inspect recorded booking attempts",
	}
	cmd.AddCommand(newAttemptsListCmd(a))
	return cmd
}

func newAttemptsListCmd(a *app) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			switch format {
			case "table", "json", "yaml":
			default:
				return usageError(fmt.Errorf("unknown format %q (table, json, yaml)", format))
			}
			recs, err := listAttempts(cmd.Context(), cfg, limit)
			if err != nil {
				return err
			}
			return writeAttempts(cmd.OutOrStdout(), format, recs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of attempts")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format: table, json or yaml")
	return cmd
}

func listAttempts(ctx context.Context, cfg *config.Config, limit int) ([]booking.AttemptRecord, error) {
	if cfg.Database.URL != "" {
		d, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return postgres.NewAttemptRepo(d).List(ctx, limit)
	}
	if cfg.Report.Dir == "" {
		return nil, usageError(fmt.Errorf("neither database.url nor report.dir is configured"))
	}
	return filelog.New(cfg.Report.Dir).List(ctx, limit)
}

func writeAttempts(w io.Writer, format string, recs []booking.AttemptRecord) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(recs); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No attempts recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOUTCOME\tSEAT\tSESSION\tDURATION\tDETAIL")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Outcome, r.Seat, r.Session,
			r.Duration.Round(time.Millisecond), r.Detail)
	}
	return tw.Flush()
}
