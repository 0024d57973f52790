package cli

import (
	"github.com/spf13/cobra"

	"github.com/pharmaguard-client/internal/api"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("port") {
				if err := rt.manager.Set("server.port", port); err != nil {
					return err
				}
			}

			analysis, release, err := rt.analysisService(ctx)
			if err != nil {
				return err
			}
			defer release()

			store, err := rt.openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeHistory(rt, store)

			server := api.NewServer(rt.manager, api.Dependencies{
				Analysis: analysis,
				Reports:  rt.reportService(),
				History:  store,
				Logger:   rt.logger,
			})
			err = server.Start(ctx)
			rt.logger.Info("Gateway stopped")
			return err
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default server.port)")
	return cmd
}
