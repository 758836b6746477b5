package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/audit"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/cache"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/graph"
	httpserver "github.com/Taikiy49/FS-Geolabs/infrastructure/http"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/s3storage"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(cmd.Context(), db, ""); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	client, err := newBackend(cfg)
	if err != nil {
		return err
	}
	graphClient, err := graph.New(cfg.Graph.BaseURL, cfg.Graph.MaxContacts)
	if err != nil {
		return fmt.Errorf("graph client: %w", err)
	}
	var storage *s3storage.Storage
	if cfg.S3.Enabled() {
		if storage, err = s3storage.New(cfg.S3); err != nil {
			return fmt.Errorf("s3 storage: %w", err)
		}
	}

	rbacCache := cache.NewRbacRolesCache()
	server := httpserver.NewServer(cfg.Addr, httpserver.Deps{
		Config:       cfg,
		DB:           db,
		Backend:      client,
		Graph:        graphClient,
		Storage:      storage,
		SessionCache: cache.NewUserSessionCache(),
		RoleCache:    cache.NewRoleCache(10 * time.Minute),
		Workspaces:   cache.NewWorkspaceCache(),
		RbacCache:    rbacCache,
		Rbac:         rbac.New(rbacCache),
		Audit:        audit.NewService(),
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("geoportal listening",
		slog.String("addr", cfg.Addr),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.Bool("s3_direct", storage != nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
	}
	return nil
}
