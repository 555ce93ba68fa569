package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"bili-tree/internal/config"
	"bili-tree/internal/library"
	"bili-tree/internal/pipeline"
	"bili-tree/internal/server"
)

func (a *app) newWatchCmd() *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the tree whenever videoInfo.json files change",
		Long: `watch builds the tree once and then keeps watching the root. Every
change triggers a debounced full rebuild that rewrites the output file.
With --serve the latest tree is also exposed over HTTP on the listen
address, which must be a localhost address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd, serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "serve /tree, /stats and /streams over HTTP")
	cmd.Flags().String("listen", "", "HTTP listen address (default is 127.0.0.1:8080)")
	cmd.Flags().Int("debounce-ms", 0, "delay before rebuilding after a change (default is 500)")
	_ = a.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = a.v.BindPFlag("debounce_ms", cmd.Flags().Lookup("debounce-ms"))
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, serve bool) error {
	if err := a.load(cmd); err != nil {
		return err
	}
	if serve {
		if err := config.ValidateListenAddr(a.cfg.Listen); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", a.cfg.Listen, err)
		}
	}

	lib, err := library.NewLibrary(library.Options{
		Root:     a.cfg.Root,
		Workers:  a.cfg.Workers,
		Exclude:  a.cfg.Exclude,
		Debounce: a.cfg.Debounce,
		Logger:   a.logger,
		OnRefresh: func(res pipeline.Result) {
			if err := a.writeTree(res); err != nil {
				a.logger.Error(err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("initialise library: %w", err)
	}
	defer func() {
		if err := lib.Close(); err != nil {
			a.logger.Errorf("error closing library: %v", err)
		}
		a.logger.Info("shutdown complete")
	}()

	ctx := cmd.Context()
	if !serve {
		a.logger.Infof("watching %s", a.cfg.Root)
		<-ctx.Done()
		return nil
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           server.New(lib, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf("graceful shutdown error: %v", err)
		}
	}()

	a.logger.Infof("watching %s, listening on %s", a.cfg.Root, a.cfg.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}
