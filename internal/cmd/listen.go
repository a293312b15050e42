package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dukerupert/carpool/internal/app"
)

func (c *cli) listenCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream realtime ride events until interrupted",
		Long: `Open the realtime channel as the signed-in user, join the rides group and
print every event as it arrives. Press Ctrl+C to stop.

With --metrics-addr the client's prometheus metrics are served at /metrics
while listening.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				if metricsAddr != "" {
					stop := serveMetrics(a, metricsAddr)
					defer stop()
				}

				events, unsubscribe := a.Realtime.Subscribe()
				defer unsubscribe()

				if err := a.ConnectRealtime(ctx); err != nil {
					return fmt.Errorf("connect realtime: %w", err)
				}
				defer a.Realtime.Disconnect()

				out := cmd.OutOrStdout()
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-events:
						if !ok {
							return nil
						}
						fmt.Fprintf(out, "%s %s %s\n", ev.ReceivedAt.Format(time.RFC3339), ev.Name, ev.Data)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	return cmd
}

func serveMetrics(a *app.App, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Toasts.Error(fmt.Sprintf("Metrics server stopped: %v", err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
