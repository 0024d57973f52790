package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pharmaguard-client/internal/setup"
)

func newSetupCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create and check the local configuration",
		// Setup must work with a broken configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	cmd.AddCommand(
		newSetupInitCommand(rt),
		newSetupStatusCommand(rt),
		newSetupValidateCommand(rt),
		newSetupShowCommand(rt),
	)
	return cmd
}

func newSetupInitCommand(rt *runtime) *cobra.Command {
	opts := setup.Options{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding every default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Init(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "path", setup.DefaultConfigPath, "config file to write")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory to create (default ~/.pharmaguard)")
	cmd.Flags().BoolVar(&opts.Overwrite, "force", false, "overwrite an existing config file")
	return cmd
}

func newSetupStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configuration file, data directory and history store in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(false); err != nil {
				return err
			}
			status := setup.GetStatus(rt.manager)

			configFile := status.ConfigFile
			if configFile == "" {
				configFile = "(none)"
			}
			fmt.Fprintf(rt.out, "Config file:     %s\n", configFile)
			fmt.Fprintf(rt.out, "Data directory:  %s (exists: %t)\n", status.DataDir, status.DataDirExists)
			fmt.Fprintf(rt.out, "History:         %s %s (exists: %t)\n", status.HistoryDriver, status.HistoryDSN, status.HistoryExists)
			fmt.Fprintf(rt.out, "Analysis URL:    %s\n", status.AnalysisURL)
			fmt.Fprintf(rt.out, "Report URL:      %s\n", status.ReportURL)
			for _, issue := range status.Issues {
				fmt.Fprintf(rt.out, "  - %s\n", issue)
			}
			return nil
		},
	}
}

func newSetupValidateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(false); err != nil {
				return err
			}
			ok, issues := setup.Validate(rt.manager)
			for _, issue := range issues {
				fmt.Fprintf(rt.out, "  - %s\n", issue)
			}
			if !ok {
				return errors.New("setup is not valid")
			}
			fmt.Fprintln(rt.out, "Setup is valid")
			return nil
		},
	}
}

func newSetupShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(false); err != nil {
				return err
			}
			data, err := yaml.Marshal(rt.manager.AllSettings())
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			_, err = rt.out.Write(data)
			return err
		},
	}
}
