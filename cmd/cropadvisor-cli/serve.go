package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yashubustudio/cropadvisor/internal/metrics"
	"yashubustudio/cropadvisor/internal/server"
)

type healthChecker interface {
	Check(ctx context.Context) error
}

func newServeCommand(g *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the advisor over HTTP",
		Long: `Serve the advisor as a JSON API under /api/v1, with crop images under
/images and counters under /metrics. Sessions are kept per browser cookie.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := metrics.NewRegistry()
			svc, cfg, logger, err := g.newService(cmd, reg)
			if err != nil {
				return err
			}
			defer svc.Close()
			if addr != "" {
				cfg.Server.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if ollama, ok := g.deps.newGenerator(cfg.Generation).(healthChecker); ok {
				checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := ollama.Check(checkCtx)
				cancel()
				if err != nil {
					logger.Warn().Err(err).Str("endpoint", cfg.Generation.Endpoint).Msg("LLM check failed; explanations will show the fallback text")
				}
			}
			return server.New(svc, cfg, reg, logger).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.address)")
	return cmd
}
