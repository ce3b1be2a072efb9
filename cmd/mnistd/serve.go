package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mnistd/internal/blobstore"
	"mnistd/internal/config"
	"mnistd/internal/httpapi"
	"mnistd/internal/manager"
	"mnistd/internal/model"
	"mnistd/internal/routing"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP classification server",
		Example: "  mnistd serve --addr :8080 --routing geo --store fs --store-path ./weights",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.resolveConfig(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.flags.Addr, "addr", "", "HTTP listen address, e.g. :8080")
	f.StringVar(&o.flags.AssetsDir, "assets-dir", "", "Directory of static frontend assets")
	f.StringVar(&o.flags.RequestLog, "request-log", "", "Per-request log level: off|error|info|debug")
	f.StringVar(&o.flags.Routing, "routing", "", "Identity routing: geo|fixed")
	f.StringVar(&o.flags.GeoHeader, "geo-header", "", "Header carrying the request's geographic region")
	f.StringVar(&o.flags.FixedIdentity, "fixed-identity", "", "Actor identity used in fixed routing")
	f.StringVar(&o.flags.ONNXLibrary, "onnx-library", "", "Path to the ONNX Runtime shared library (onnx builds)")
	f.IntVar(&o.flags.MaxQueueDepth, "max-queue-depth", 0, "Mailbox capacity per actor")
	f.IntVar(&o.flags.MaxWaitMS, "max-wait-ms", 0, "How long a request waits for mailbox space")
	f.IntVar(&o.flags.MaxActors, "max-actors", 0, "Cap on live actors (0=unlimited)")
	f.IntVar(&o.flags.DrainTimeoutSeconds, "drain-timeout-seconds", 0, "How long unload waits for queued work")
	f.IntVar(&o.flags.RequestTimeoutSeconds, "request-timeout-seconds", 0, "Classification request timeout (0=none)")
	f.Int64Var(&o.flags.MaxBodyBytes, "max-body-bytes", 0, "Maximum JSON request body size")
	f.Int64Var(&o.flags.MaxImageBytes, "max-image-bytes", 0, "Maximum image upload size")
	f.StringVar(&o.corsCSV, "cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	return cmd
}

// serve runs the server until ctx is cancelled, then shuts down HTTP first
// and the actors second.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	model.ConfigureONNX(cfg.ONNXLibrary, cfg.ONNXInput, cfg.ONNXOutput)

	store, err := blobstore.Open(cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	resolver, err := routing.New(cfg.Routing, cfg.GeoHeader, cfg.FixedIdentity)
	if err != nil {
		return err
	}

	mgr, err := manager.New(manager.Config{
		Store:         store,
		WeightsKey:    cfg.WeightsKey,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		MaxActors:     cfg.MaxActors,
		DrainTimeout:  time.Duration(cfg.DrainTimeoutSeconds) * time.Second,
		Logger:        &log,
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.RequestLog)
	httpapi.SetBaseContext(base)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetMaxImageBytes(cfg.MaxImageBytes)
	httpapi.SetRequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr, resolver, httpapi.AssetsHandler(cfg.AssetsDir)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("routing", cfg.Routing).
			Str("store", cfg.Store).
			Str("weights_key", mgr.WeightsKey()).
			Msg("mnistd listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
