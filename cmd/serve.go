package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/event"
	"github.com/conneroisu/thinkgo/internal/kernel"
	"github.com/conneroisu/thinkgo/internal/metrics"
	"github.com/conneroisu/thinkgo/internal/middleware"
	"github.com/conneroisu/thinkgo/internal/output"
	"github.com/conneroisu/thinkgo/internal/request"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve bootstrap diagnostics over HTTP",
	Long: `Start an HTTP server that bootstraps a fresh application for every request
and answers with what the kernel resolved: application, namespace, paths,
middleware and configuration files.

Routes:
  /healthz     Liveness probe
  /metrics     Prometheus metrics
  /*           Bootstrap diagnostics for the request path

Examples:
  thinkgo serve --multi --auto
  thinkgo serve --addr :8080 --watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8000", "Address to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Clear the init cache when configuration changes")

	bindFlags(serveCmd.Flags(), map[string]string{
		"server.addr":  "addr",
		"server.watch": "watch",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	boot, err := loadBootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool("server.watch") {
		if err := boot.watch(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              boot.settings.Server.Addr,
		Handler:           newRouter(boot, metrics.New(prometheus.NewRegistry())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		boot.logger.Info(ctx, "Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	boot.logger.Info(shutdownCtx, "Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

// watch clears the init cache whenever configuration changes, until ctx is done.
func (b *bootstrap) watch(ctx context.Context) error {
	opts := b.options()
	opts.CLI = true
	opts.KeepProcessTimezone = true

	app := kernel.New(opts)
	if err := app.Parse(ctx); err != nil {
		return err
	}

	fw, err := app.Watch(ctx, 200*time.Millisecond, func(paths []string) {
		b.logger.Info(ctx, "Configuration reloaded on next request", "files", len(paths))
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = fw.Stop()
	}()
	return nil
}

// server bootstraps one App per request.
type server struct {
	boot    *bootstrap
	metrics *metrics.Metrics
}

func newRouter(boot *bootstrap, m *metrics.Metrics) http.Handler {
	s := &server{boot: boot, metrics: m}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())
	r.HandleFunc("/*", s.serveApp)
	return r
}

func (s *server) serveApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := request.FromHTTP(r)

	opts := s.boot.options()
	opts.Request = req
	opts.KeepProcessTimezone = true
	opts.Metrics = s.metrics
	opts.Events = s.boot.events()
	opts.Output = output.New(w)
	opts.Middleware = middleware.NewChain()
	middleware.Defaults(opts.Middleware, s.boot.logger)

	app := kernel.New(opts)
	defer func() {
		if err := app.Close(ctx); err != nil {
			app.HandleError(ctx, err)
		}
	}()
	if _, err := app.Initialize(ctx); err != nil {
		status := kerrors.HTTPStatus(err)
		app.HandleError(ctx, err)
		s.metrics.HTTPRequest(app.MetricsLabel(), strconv.Itoa(status))
		respondJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	defer app.Recover(ctx)

	if err := app.Events().Trigger(ctx, event.HttpRun, app); err != nil {
		s.fail(ctx, w, app, err)
		return
	}

	handler := app.Middleware().Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(app.Output()).Encode(newAppReport(app))
	}))
	handler.ServeHTTP(w, r)

	if err := app.Output().FlushAll(); err != nil {
		app.HandleError(ctx, err)
	}
	if err := app.Events().Trigger(ctx, event.HttpEnd, app); err != nil {
		app.HandleError(ctx, err)
	}
	s.metrics.HTTPRequest(app.MetricsLabel(), strconv.Itoa(http.StatusOK))
}

func (s *server) fail(ctx context.Context, w http.ResponseWriter, app *kernel.App, err error) {
	status := kerrors.HTTPStatus(err)
	app.HandleError(ctx, err)
	s.metrics.HTTPRequest(app.MetricsLabel(), strconv.Itoa(status))
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
