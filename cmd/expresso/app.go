package main

import (
	"context"
	"errors"
	"fmt"

	"expresso/internal/aggregate"
	"expresso/internal/backend"
	"expresso/internal/config"
	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/refresh"
	"expresso/internal/remote"
	"expresso/internal/remote/httpclient"
	"expresso/internal/services"
	"expresso/internal/store"
)

// Owner registered by the in-process ledger when running offline.
const (
	offlineName     = "Local"
	offlineEmail    = "local@expresso.dev"
	offlinePassword = "expresso"
)

// app is one logged-in session: a store for the owner, loaded once, and the
// coordinators that mutate it.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	owner   int64
	store   *store.Store
	refresh *refresh.Orchestrator
	coord   *services.Coordinator
	views   *aggregate.Memo
	cleanup func() error
}

// newApp wires the collaborator, either the HTTP API or an in-process ledger,
// and performs the initial load.
func newApp(ctx context.Context, cfg *config.Config, offline bool, logger *applog.Logger) (*app, error) {
	collab, cleanup, err := collaborator(ctx, cfg, offline, logger)
	if err != nil {
		return nil, err
	}
	st := store.New()
	orch := refresh.New(st, collab, cfg.ClientID, logger)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		owner:   cfg.ClientID,
		store:   st,
		refresh: orch,
		coord:   services.NewCoordinator(collab, orch, st, cfg.ClientID, logger),
		views:   aggregate.NewMemo(cfg.SummaryCacheSize),
		cleanup: cleanup,
	}

	err = orch.RefreshAll(ctx)
	var partial *refresh.PartialError
	if errors.As(err, &partial) {
		// One retry for the collections that failed; the rest are loaded.
		err = orch.Retry(ctx, partial)
	}
	if err != nil {
		a.close()
		return nil, err
	}
	logger.Debug("Store loaded", applog.FieldVersion, st.Version())
	return a, nil
}

func collaborator(ctx context.Context, cfg *config.Config, offline bool, logger *applog.Logger) (remote.Collaborator, func() error, error) {
	if !offline {
		client, err := httpclient.New(cfg.APIBaseURL, cfg.APITimeout, httpclient.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	profile := core.Profile{ID: cfg.ClientID, Name: offlineName, Email: offlineEmail}
	if _, err := res.Ledger.RegisterOwner(ctx, profile, offlinePassword); err != nil {
		_ = res.Cleanup()
		return nil, nil, fmt.Errorf("register offline owner: %w", err)
	}
	return res.Ledger, res.Cleanup, nil
}

func (a *app) snapshot() (*store.Snapshot, error) {
	snap, err := a.store.Snapshot()
	if err != nil {
		return nil, err
	}
	if len(snap.Stale) > 0 {
		a.logger.Warn("Showing stale data", applog.FieldStale, snap.Stale, applog.FieldVersion, snap.Version)
	}
	return snap, nil
}

func (a *app) close() {
	a.store.Close()
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			a.logger.Warn("Cleanup failed", applog.FieldError, err)
		}
	}
}
