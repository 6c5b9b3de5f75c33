package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/KaramelBytes/csvdash/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	srvAddr        string
	srvMaxSessions int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newServices(serviceOptions{History: true})
		if err != nil {
			return err
		}
		defer cleanup()
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		addr := c.ServeAddr
		if srvAddr != "" {
			addr = srvAddr
		}
		mgr := dashboard.NewManager(svc)
		if srvMaxSessions > 0 {
			mgr.MaxSessions = srvMaxSessions
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on http://%s (AI: %s)\n", addr, aiState(svc))
		svc.Log.Info("starting server", zap.String("addr", addr), zap.Int("max_sessions", mgr.MaxSessions))
		srv := server.New(mgr, server.Options{Addr: addr, CORSOrigins: c.CORSOrigins}, svc.Log)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides serve_addr)")
	serveCmd.Flags().IntVar(&srvMaxSessions, "max-sessions", 0, "max concurrent sessions before the oldest is evicted")
}

func aiState(svc dashboard.Services) string {
	if svc.Gateway.Enabled() {
		return svc.Gateway.Model()
	}
	return "off, local fallbacks"
}
