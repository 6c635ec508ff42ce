// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/authledger/authledger/internal/observability"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run metrics, health checks and periodic history compaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}
}

func (c *cli) runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	rt, cfg, logger, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv := observability.NewServer(cfg.Metrics.Addr, rt.Ready, logger)
		rt.RegisterMetrics(srv.Registry())

		errCh, err := srv.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		cmd.Printf("metrics listening on %s\n", srv.Addr())

		g.Go(func() error {
			return watchServer(gctx, errCh, srv.Stop)
		})
	}

	if cfg.Compactor.Interval > 0 {
		g.Go(func() error {
			return rt.Compactor.Run(gctx, cfg.Compactor.Interval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logger.InfoContext(ctx, "authledger serving",
		"metrics_addr", cfg.Metrics.Addr,
		"compactor_interval", cfg.Compactor.Interval)

	err = g.Wait()
	logger.InfoContext(context.Background(), "authledger stopped")
	return err
}

// watchServer blocks until ctx ends, then stops the server. The server
// exiting first is an error whether or not it reported one, so the group
// shuts down instead of serving without metrics.
func watchServer(ctx context.Context, errCh <-chan error, stop func(context.Context) error) error {
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "observability server").Wrap(err)
		}
		return oops.Code("SERVE_FAILED").With("operation", "observability server").
			Errorf("observability server exited")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return stop(shutdownCtx)
}
