package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/backupwatch/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP trigger API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the analyses over HTTP",
	Long: `Start an HTTP server so that an external scheduler can trigger runs.

Routes:
  POST /analyzing/scheduleBased?alertLimit=N
  POST /analyzing/size?alertLimit=N
  POST /analyzing/storage?alertLimit=N
  POST /updating/backupData
  GET  /metrics
  GET  /health

Every trigger answers {"count": n}.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(env, cfg).ListenAndServe(ctx, cfg.Listen)
	},
}
