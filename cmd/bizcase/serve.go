package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/archive"
	"github.com/joelkehle/bizcase/internal/export"
	"github.com/joelkehle/bizcase/internal/httpapi"
	"github.com/joelkehle/bizcase/internal/store"
	"github.com/joelkehle/bizcase/internal/tracing"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the form, preview pages and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
		if err != nil {
			return eris.Wrap(err, "tracing setup")
		}
		defer func() {
			tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(tctx); err != nil {
				zap.L().Warn("tracing shutdown", zap.Error(err))
			}
		}()

		st, err := store.Open(cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		arch, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			return eris.Wrap(err, "archive setup")
		}

		gen := newGenerator(cfg)
		handler := httpapi.NewServer(httpapi.Options{
			Generator:    gen,
			Store:        st,
			Exporter:     export.NewExporter(export.NewPDFRenderer(cfg.Export)),
			Archiver:     arch,
			CORSOrigins:  cfg.Server.CORSOrigins,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
		})

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			timeout := time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			sctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				zap.L().Error("graceful shutdown failed", zap.Error(err))
				_ = srv.Close()
			}
		}()

		provider, model := gen.Provider()
		zap.L().Info("starting server",
			zap.String("addr", addr),
			zap.String("provider", provider),
			zap.String("model", model),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("archive", archive.Enabled(arch)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
