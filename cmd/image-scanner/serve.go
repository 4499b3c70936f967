package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/image-scanner/internal/assetcache"
	"github.com/ironsheep/image-scanner/internal/config"
	"github.com/ironsheep/image-scanner/internal/web"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web scanner and its JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.StopCamera()

			store, err := assetcache.NewStore(storeConfig(cfg.Cache))
			if err != nil {
				return fmt.Errorf("asset cache: %w", err)
			}
			defer store.Close()

			fsys, err := web.Assets(cfg.Server.StaticRoot)
			if err != nil {
				return fmt.Errorf("static assets: %w", err)
			}
			static := web.StaticHandler(fsys)

			proxy := assetcache.New(store, assetcache.Options{
				Version: cfg.Cache.Version,
				Assets:  cfg.Cache.Assets,
				Logger:  logger,
			})
			installAssets(ctx, proxy, static, logger)

			router := web.Build(web.Options{
				App:         app,
				Proxy:       proxy,
				Static:      static,
				CORSOrigins: cfg.Server.CORSOrigins,
				Logger:      logger,
				Debug:       debug,
			})

			logger.Info("image-scanner starting",
				"version", Version,
				"addr", cfg.Server.Addr,
				"model", cfg.Model.Backend,
				"cache", cfg.Cache.Driver)
			return web.ListenAndServe(ctx, cfg.Server.Addr, router, cfg.Server.ShutdownTimeout, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&debug, "debug", false, "gin debug mode")
	return cmd
}

// installAssets populates the current cache generation and drops older
// ones. A failed install leaves the proxy serving from the network.
func installAssets(ctx context.Context, proxy *assetcache.Proxy, network http.Handler, logger *slog.Logger) {
	if err := proxy.Install(ctx, network); err != nil {
		logger.Warn("asset cache install failed", "error", err)
		return
	}
	if err := proxy.Activate(ctx); err != nil {
		logger.Warn("asset cache activate failed", "error", err)
	}
}

func storeConfig(cfg config.CacheConfig) assetcache.Config {
	return assetcache.Config{
		Driver: cfg.Driver,
		SQLite: &assetcache.SQLiteConfig{Path: cfg.SQLitePath},
		Redis: &assetcache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}
}
