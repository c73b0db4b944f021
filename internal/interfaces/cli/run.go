package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/spinbook/internal/application/scheduler"
	"github.com/example/spinbook/internal/application/usecases"
	"github.com/example/spinbook/internal/db"
	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/domain/ui"
	"github.com/example/spinbook/internal/infrastructure/cdpdriver"
	"github.com/example/spinbook/internal/infrastructure/config"
	"github.com/example/spinbook/internal/infrastructure/filelog"
	"github.com/example/spinbook/internal/infrastructure/postgres"
	"github.com/example/spinbook/internal/infrastructure/pwdriver"
	"github.com/example/spinbook/internal/infrastructure/report"
	"github.com/example/spinbook/internal/observability"
)

func newRunCmd(a *app) *cobra.Command {
	var noWait bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Wait for the booking window, log in and book a seat",
		Long: `Runs one booking attempt. The browser is started ahead of time, the
window is polled until it opens, and then the configured location, session
and seats are tried in order. The exit code reflects the outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			creds, err := config.CredentialsFromEnv(cfg.Credentials)
			if err != nil {
				return usageError(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			attempt, cleanup, err := buildAttempt(ctx, cfg, creds, noWait)
			if err != nil {
				return usageError(err)
			}
			defer cleanup()

			outcome := attempt.Run(ctx)
			printOutcome(cmd, outcome)
			if code := outcome.ExitCode(); code != booking.ExitSuccess {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "check the window once and exit instead of polling")
	return cmd
}

func buildAttempt(ctx context.Context, cfg *config.Config, creds booking.Credentials, noWait bool) (*usecases.Attempt, func(), error) {
	log := observability.GetLogger()
	req, err := cfg.Request()
	if err != nil {
		return nil, nil, err
	}
	site, err := cfg.SiteSpec()
	if err != nil {
		return nil, nil, err
	}
	timeouts := cfg.UseCaseTimeouts()

	reporter, cleanup := openReporter(ctx, cfg, log)
	attempt := &usecases.Attempt{
		Gate: &scheduler.Gate{
			Window:    req.Window,
			Interval:  cfg.Gate.Interval,
			MaxChecks: cfg.Gate.MaxChecks,
			NoWait:    noWait,
			Log:       log,
		},
		Launch:    launcher(cfg.Browser, log),
		Auth:      &usecases.SessionController{Site: site, Timeouts: timeouts, Log: log},
		Booker:    &usecases.Orchestrator{Site: site, Timeouts: timeouts, Retry: cfg.Retry, Log: log},
		Reporter:  reporter,
		Request:   req,
		Creds:     creds,
		Prelaunch: cfg.Browser.Prelaunch && !noWait,
		Log:       log,
	}
	return attempt, cleanup, nil
}

// openReporter fans records out to the file log and, when configured, to
// Postgres. An unreachable database only loses the database copy.
func openReporter(ctx context.Context, cfg *config.Config, log *zap.Logger) (booking.Reporter, func()) {
	var reporters report.Multi
	if cfg.Report.Dir != "" {
		reporters = append(reporters, filelog.New(cfg.Report.Dir))
	}
	cleanup := func() {}
	if cfg.Database.URL != "" {
		d, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			log.Warn("Attempt log database unavailable, continuing without it.", zap.Error(err))
		} else {
			reporters = append(reporters, postgres.NewAttemptRepo(d))
			cleanup = d.Close
		}
	}
	return reporters, cleanup
}

func launcher(bc config.BrowserConfig, log *zap.Logger) usecases.Launcher {
	return func(ctx context.Context) (ui.Driver, error) {
		switch bc.Driver {
		case config.DriverPlaywright:
			d, err := pwdriver.Launch(ctx, pwdriver.Options{
				Headless: bc.Headless,
				ExecPath: bc.ExecPath,
				Args:     bc.Args,
				Install:  bc.Install,
				Log:      log,
			})
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			d, err := cdpdriver.Launch(ctx, cdpdriver.Options{
				Headless: bc.Headless,
				ExecPath: bc.ExecPath,
				Args:     bc.Args,
				Log:      log,
			})
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	}
}

func printOutcome(cmd *cobra.Command, o booking.Outcome) {
	out := cmd.OutOrStdout()
	switch o.Kind {
	case booking.OutcomeSuccess:
		fmt.Fprintf(out, "Booked %s\n", o.Seat)
	case booking.OutcomeStepFailed:
		fmt.Fprintf(out, "%s at step %s: %s\n", o.Kind, o.Step, o.Detail)
	default:
		fmt.Fprintf(out, "%s: %s\n", o.Kind, o.Detail)
	}
}
