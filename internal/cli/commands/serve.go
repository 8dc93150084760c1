package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/server"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only inspector over runs and buckets",
		Long: `Start an HTTP server exposing the run ledger, file transitions, bucket
contents and schema history as JSON.

With --watch the bucket directories are watched and clients subscribed to
/api/events are notified on every change.`,
		Example: `  # Serve on the configured address
  leapingest serve

  # Serve on all interfaces without watching
  leapingest serve --addr 0.0.0.0:8765 --watch=false`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Address to listen on (default from config)")
	cmd.Flags().Bool("watch", true, "Notify event subscribers when buckets change")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	layouts := make(map[core.Mode]bucket.Layout)
	for _, mode := range []core.Mode{core.ModeTrain, core.ModePredict} {
		if cmdCtx.Cfg.DataDir(mode) != "" {
			layouts[mode] = eng.Layout(mode)
		}
	}

	srv := server.New(server.Config{
		Store:   eng.Store(),
		Layouts: layouts,
		Schemas: eng.Schemas(),
		Addr:    cmdCtx.Cfg.Server.Addr,
		Watch:   cmdCtx.Cfg.Server.Watch,
		Logger:  cmdCtx.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx.Renderer.Muted("Inspector listening on http://" + cmdCtx.Cfg.Server.Addr)
	return srv.Serve(ctx)
}
