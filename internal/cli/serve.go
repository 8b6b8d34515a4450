package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/api"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve claim checks and chat over HTTP",
	Long: `Serve exposes the claim checker as a JSON API:
  POST /check           verify a claim
  POST /chat            ask a follow-up question in a session
  GET  /sessions/{id}   read a session transcript
  GET  /healthz         liveness
  GET  /metrics         Prometheus metrics

Example:
  claimcheck serve
  claimcheck serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	checkCtx, cancelCheck := context.WithTimeout(ctx, 10*time.Second)
	if !a.pipeline.Ready(checkCtx) {
		a.logger.Warn("language model is not reachable; /check and /chat will fail until it is",
			zap.String("provider", a.cfg.LLM.Provider))
	}
	cancelCheck()

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewServer(a.pipeline, a.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
