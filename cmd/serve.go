package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/batcov/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive prevalence dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		ds, err := loadDataset(c)
		if err != nil {
			return err
		}
		if ds.Rows() == 0 {
			warnf(cmd.ErrOrStderr(), "no cross-sectional rows in %s", ds.Source())
		}
		app, err := server.NewApp(ds, server.Config{
			Addr:        addr,
			MinSampled:  c.MinSampled,
			ChartWidth:  c.ChartWidth,
			ChartHeight: c.ChartHeight,
		}, logger)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		successf(cmd.OutOrStdout(), "Dashboard on %s (%d rows from %s)", addr, ds.Rows(), ds.Source())
		return app.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8501", "listen address (overrides listen_addr)")
}
