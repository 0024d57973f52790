// Package cli implements the pharmaguard command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pharmaguard-client/internal/config"
	"github.com/pharmaguard-client/internal/logging"
)

// runtime is the state shared by every subcommand once the configuration is
// loaded.
type runtime struct {
	configFile string
	logLevel   string

	out    io.Writer
	errOut io.Writer

	manager *config.Manager
	logger  *logrus.Logger
}

// NewRootCommand builds the command tree. Command output goes to out;
// logs and notifications go to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	rt := &runtime{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "pharmaguard",
		Short: "Pharmacogenomic risk analysis client",
		Long: `pharmaguard submits a patient's VCF file and a list of drugs to the
PharmaGuard analysis service and presents the per-drug risk assessment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load(true)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&rt.configFile, "config", "", "config file (default is ./pharmaguard.yaml)")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newAnalyzeCommand(rt),
		newReportCommand(rt),
		newServeCommand(rt),
		newHistoryCommand(rt),
		newSetupCommand(rt),
	)
	return root
}

// Execute runs the command line against the process arguments. An interrupt
// cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// load reads the configuration and builds the logger. With validate set an
// invalid configuration is an error.
func (rt *runtime) load(validate bool) error {
	manager, err := config.NewManager(rt.configFile)
	if err != nil {
		return err
	}
	if rt.logLevel != "" {
		if err := manager.Set("logging.level", strings.ToLower(rt.logLevel)); err != nil {
			return err
		}
	}
	if validate {
		if err := manager.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	rt.manager = manager
	rt.logger = logging.NewLogger(manager.GetConfig().Logging, rt.errOut)
	if used := manager.ConfigFileUsed(); used != "" {
		rt.logger.WithField("config_file", used).Debug("Loaded configuration")
	}
	return nil
}
