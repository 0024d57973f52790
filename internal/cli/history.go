package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-client/internal/export"
	"github.com/pharmaguard-client/internal/history"
)

func newHistoryCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded submissions",
	}
	cmd.AddCommand(
		newHistoryListCommand(rt),
		newHistoryShowCommand(rt),
		newHistoryExportCommand(rt),
		newHistoryImportCommand(rt),
		newHistoryDeleteCommand(rt),
	)
	return cmd
}

// withHistory opens the store for the duration of fn.
func withHistory(cmd *cobra.Command, rt *runtime, fn func(store history.Store) error) error {
	store, err := rt.openHistory(cmd.Context())
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history is disabled (history.driver is none)")
	}
	defer closeHistory(rt, store)
	return fn(store)
}

func newHistoryListCommand(rt *runtime) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, rt, func(store history.Store) error {
				records, err := store.List(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				total, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				for _, rec := range records {
					fmt.Fprintf(rt.out, "%s  %s  %-20s  %d results (%d high risk)  %v\n",
						rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.FileName,
						rec.Total, rec.HighRisk, rec.Drugs)
				}
				fmt.Fprintf(rt.out, "showing %d of %d\n", len(records), total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of records to skip")
	return cmd
}

func newHistoryShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one recorded submission as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, rt, func(store history.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("no recorded submission with id %s", args[0])
				}
				data, err := export.Marshal(rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(rt.out, string(data))
				return nil
			})
		},
	}
}

func newHistoryExportCommand(rt *runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every recorded submission as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, rt, func(store history.Store) error {
				if output == "" {
					return store.ExportJSON(cmd.Context(), rt.out)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				if err := store.ExportJSON(cmd.Context(), f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				rt.logger.WithField("path", output).Info("History exported")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newHistoryImportCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import submissions from a history export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, rt, func(store history.Store) error {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()
				imported, skipped, err := store.ImportJSON(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "imported %d, skipped %d\n", imported, skipped)
				return nil
			})
		},
	}
}

func newHistoryDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, rt, func(store history.Store) error {
				return store.Delete(cmd.Context(), args[0])
			})
		},
	}
}
