package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/infrastructure/config"
	"github.com/example/spinbook/internal/observability"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// ExitError carries a process exit code out of a command. A nil Err means
// the command already reported what happened.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: booking.ExitUsage, Err: err}
}

// app holds state shared by the subcommands for one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper
}

func (a *app) init() error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "spinbook"})
		return usageError(err)
	}
	a.v = v
	cfg, err := config.Decode(v)
	if err != nil {
		return usageError(err)
	}
	observability.InitializeLogger(cfg.Logger)
	return nil
}

// settings decodes the config without validating the booking section.
func (a *app) settings() (*config.Config, error) {
	cfg, err := config.Decode(a.v)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// config decodes and validates everything a booking run needs.
func (a *app) config() (*config.Config, error) {
	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "spinbook",
		Short:         "Books a spin class seat the moment the booking window opens",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			observability.GetLogger().Debug("Starting spinbook.", zap.String("version", Version), zap.String("command", cmd.CommandPath()))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newWindowCmd(a))
	root.AddCommand(newAttemptsCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	defer observability.Sync()
	if err == nil {
		return booking.ExitSuccess
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exit.Err)
		}
		return exit.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return booking.ExitUsage
}
