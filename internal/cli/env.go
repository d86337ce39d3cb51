// Package cli implements the opsctl maintenance commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"patrolops/api/internal/config"
	"patrolops/api/internal/docstore"
	"patrolops/api/internal/events"
	"patrolops/api/internal/service"
)

// env bundles the services a command works with. Commands talk to the store
// directly; nothing is published to NATS.
type env struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      docstore.Store
	users      *service.UserService
	importer   *service.UserImportService
	catalogs   *service.CatalogService
	operatives *service.OperativeService
	reports    *service.ReportService
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	store, err := docstore.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	loc := cfg.Location()
	e := &env{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		users:    service.NewUserService(store, logger),
		catalogs: service.NewCatalogService(store, logger),
	}
	policy := service.NewVisibilityPolicy(loc, cfg.ShiftCutoffHour)
	e.importer = service.NewUserImportService(e.users, nil)
	e.operatives = service.NewOperativeService(store, e.catalogs, policy, events.Nop{}, nil, loc, logger)
	e.reports = service.NewReportService(e.operatives, policy, loc, cfg.ExportCutoffHour)
	return e, nil
}

func (e *env) Close() error {
	_ = e.logger.Sync()
	return e.store.Close()
}

// output opens path for writing, or stdout when path is empty or "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)
