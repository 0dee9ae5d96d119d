package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/lootsync/internal/config"
	"github.com/park285/lootsync/internal/history"
	"github.com/park285/lootsync/internal/hub"
	"github.com/park285/lootsync/internal/loot"
	"github.com/park285/lootsync/internal/msgcat"
	"github.com/park285/lootsync/internal/obslog"
	"github.com/park285/lootsync/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload API and WebSocket sync server",
		Example: `  # listen on the default :8080
  lootsync serve

  # custom address, items from a remote catalog
  CATALOG_SOURCE=https://example.org/items.txt lootsync serve --addr :9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := obslog.InitFromEnv(); err != nil {
				return err
			}
			defer obslog.Sync()
			log := obslog.L()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			ctx := cmd.Context()
			parser, cat, err := buildParser(ctx, cfg)
			if err != nil {
				return err
			}
			store, err := history.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			msgs, err := msgcat.New(cfg.MessagesDir)
			if err != nil {
				return err
			}

			h := hub.New(loot.NewState(), store, hub.WithOriginPatterns(originHosts(cfg.AllowedOrigins)...))
			srv := server.New(cfg, server.Deps{
				Catalog:  cat,
				Parser:   parser,
				Hub:      h,
				History:  store,
				Messages: msgs,
			})

			log.Info("lootsync_starting",
				zap.String("addr", cfg.ListenAddr),
				zap.Int("catalog_items", cat.Len()),
				zap.String("history", cfg.HistoryBackend),
			)

			serverErr := make(chan error, 1)
			go func() { serverErr <- srv.Start() }()

			select {
			case <-ctx.Done():
				log.Info("lootsync_stopping")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Stop(shutdownCtx); err != nil {
					log.Error("shutdown_failed", zap.Error(err))
					return err
				}
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}
