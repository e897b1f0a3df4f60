package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	yall "yall.in"
	"yall.in/colour"

	"github.com/driftbox/driftbox"
	"github.com/driftbox/driftbox/httpapi"
)

func main() {
	log := yall.New(colour.New(os.Stdout, yall.Info))
	ctx := yall.InContext(context.Background(), log)

	cmd := &cli.Command{
		Name:  "driftboxd",
		Usage: "serves the in-memory driftbox file exchange",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "listen-addr",
				Usage: "overrides the config file's listen_addr",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := readConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			if addr := cmd.String("listen-addr"); addr != "" {
				cfg.ListenAddr = addr
			}
			return run(ctx, cfg)
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		yall.FromContext(ctx).WithError(err).Error("driftboxd exited with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serverConfig) error {
	logger := yall.FromContext(ctx)

	registry := prometheus.NewRegistry()
	metrics := driftbox.NewMetrics(registry)

	repoOpts, err := cfg.repositoryOptions(metrics)
	if err != nil {
		return err
	}

	repo, err := driftbox.NewRepository(repoOpts)
	if err != nil {
		return err
	}
	defer repo.Close()

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewRouter(repo, httpapi.RouterOptions{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		UploadGracePeriod: time.Duration(cfg.UploadGraceSeconds) * time.Second,
		Registerer:        registry,
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: withLogger(mux, ctx),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("listen_addr", cfg.ListenAddr).Info("driftboxd listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	exitCh := make(chan os.Signal, 1)
	signal.Notify(exitCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-exitCh:
	}

	logger.Info("driftboxd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// withLogger attaches the logger carried by base to every inbound
// request's context, the same way storer_test.go seeds a context for
// the core package's yall.FromContext calls.
func withLogger(next http.Handler, base context.Context) http.Handler {
	logger := yall.FromContext(base)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(yall.InContext(r.Context(), logger)))
	})
}
