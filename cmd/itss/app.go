/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kentakayama/its-station/internal/config"
	"github.com/kentakayama/its-station/internal/identity"
	"github.com/kentakayama/its-station/internal/infra/authority"
	"github.com/kentakayama/its-station/internal/infra/sqlite"
	"github.com/kentakayama/its-station/internal/logging"
	"github.com/kentakayama/its-station/internal/metrics"
	"github.com/kentakayama/its-station/internal/pki"
	"github.com/kentakayama/its-station/internal/resolver"
	"github.com/kentakayama/its-station/internal/station"
)

const (
	journalFile = "itss.db"
	certsDir    = "certs"
)

// app holds the wired components of one station directory.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sql.DB
	metrics  *metrics.Metrics
	resolver *resolver.Resolver
	identity *identity.Manager
	events   *sqlite.CredentialEventRepository
	peers    *sqlite.PeerCertificateRepository
}

func newApp(ctx context.Context, v *viper.Viper, configFile string) (*app, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	dir := cfg.Station.Dir
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create station directory: %w", err)
	}
	db, err := sqlite.InitDB(ctx, filepath.Join(dir, journalFile))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		events:  sqlite.NewCredentialEventRepository(db),
		peers:   sqlite.NewPeerCertificateRepository(db),
	}

	authCfg := cfg.Authority
	authCfg.Logger = logger
	client, err := authority.NewClient(authCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.resolver = resolver.New(resolver.Config{
		Disk:     resolver.NewFileStore(filepath.Join(dir, certsDir)),
		Remote:   client,
		Logger:   logger,
		Metrics:  a.metrics,
		OnLoaded: station.PeerJournal(a.peers, logger),
	})

	opts := pki.Options{
		SignerID:       cfg.Station.SignerID,
		EAID:           cfg.Station.EAID,
		AdditionalData: cfg.Station.AdditionalData,
		Permissions:    cfg.Station.Permissions,
		Logger:         logger,
		Metrics:        a.metrics,
	}
	a.identity = identity.NewManager(identity.Config{
		Dir:        dir,
		HSM:        cfg.HSM,
		Enroller:   pki.NewEnroller(client, opts),
		Authorizer: pki.NewAuthorizer(client, opts),
		Resolver:   a.resolver,
		Journal:    a.events,
		Logger:     logger,
	})
	return a, nil
}

func (a *app) Close() {
	if a.identity != nil {
		if err := a.identity.Close(); err != nil {
			a.logger.Warn("closing signing key", zap.Error(err))
		}
	}
	if err := sqlite.CloseDB(a.db); err != nil {
		a.logger.Warn("closing journal", zap.Error(err))
	}
	_ = a.logger.Sync()
}
