package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hartyporpoise/hwrt/internal/api"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the diagnostics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			if cmd.Flags().Changed("host") {
				e.cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				e.cfg.Port = port
			}
			if err := e.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("\n  hwrt diagnostics at http://%s\n\n", e.cfg.Addr())
			srv := api.NewServer(&e.cfg, e.sub, e.log)
			if err := srv.Run(ctx, e.cfg.Addr()); err != nil {
				return err
			}
			e.log.Info("diagnostics server stopped", zap.String("addr", e.cfg.Addr()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&host, "host", "", "Bind address (default from config, 127.0.0.1)")
	f.IntVarP(&port, "port", "p", 0, "HTTP port (default from config, 8080)")
	return cmd
}
