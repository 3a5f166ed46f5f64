/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package resolver finds certificates by HashedID8 digest, looking in memory,
// then on disk, then at the Authorization Authority.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/metrics"
)

// Source names the tier a certificate was obtained from.
type Source string

const (
	SourceMemory Source = "memory"
	SourceDisk   Source = "disk"
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// DiskStore persists certificates by digest. Load returns ErrNotFound when
// nothing is stored for the digest.
type DiskStore interface {
	Load(digest cits.HashedID8) (*cits.Certificate, error)
	Save(cert *cits.Certificate) error
}

// RemoteFetcher downloads the encoding of a certificate by digest.
type RemoteFetcher interface {
	FetchCertificate(ctx context.Context, digest cits.HashedID8) ([]byte, error)
}

type Config struct {
	Disk    DiskStore
	Remote  RemoteFetcher
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// OnLoaded, if set, is called once per certificate entering the memory
	// tier from disk, from the remote authority or through Store.
	OnLoaded func(ctx context.Context, cert *cits.Certificate, src Source)
}

type Resolver struct {
	memory   *cache.Cache
	disk     DiskStore
	remote   RemoteFetcher
	group    singleflight.Group
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	onLoaded func(ctx context.Context, cert *cits.Certificate, src Source)
}

func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		// entries are immutable and kept for the process lifetime
		memory:   cache.New(cache.NoExpiration, 0),
		disk:     cfg.Disk,
		remote:   cfg.Remote,
		logger:   logger.Sugar(),
		metrics:  cfg.Metrics,
		onLoaded: cfg.OnLoaded,
	}
}

// Resolve returns the certificate whose digest is d.
func (r *Resolver) Resolve(ctx context.Context, d cits.HashedID8) (*cits.Certificate, error) {
	if cert, ok := r.lookup(d); ok {
		r.metrics.RecordLookup(string(SourceMemory))
		return cert, nil
	}

	v, err, _ := r.group.Do(d.Hex(), func() (any, error) {
		if cert, ok := r.lookup(d); ok {
			return cert, nil
		}
		if cert, ok := r.loadFromDisk(d); ok {
			r.admit(ctx, cert, SourceDisk)
			return cert, nil
		}
		cert, err := r.fetch(ctx, d)
		if err != nil {
			return nil, err
		}
		r.admit(ctx, cert, SourceRemote)
		return cert, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cits.Certificate), nil
}

// Store puts cert into the memory and disk tiers.
func (r *Resolver) Store(ctx context.Context, cert *cits.Certificate) error {
	if r.disk != nil {
		if err := r.disk.Save(cert); err != nil {
			return fmt.Errorf("store certificate %s: %w", cert.Digest, err)
		}
	}
	r.admit(ctx, cert, SourceLocal)
	return nil
}

// Len reports the number of certificates held in memory.
func (r *Resolver) Len() int {
	return r.memory.ItemCount()
}

func (r *Resolver) lookup(d cits.HashedID8) (*cits.Certificate, bool) {
	v, ok := r.memory.Get(d.Hex())
	if !ok {
		return nil, false
	}
	return v.(*cits.Certificate), true
}

func (r *Resolver) admit(ctx context.Context, cert *cits.Certificate, src Source) {
	if _, ok := r.lookup(cert.Digest); ok {
		return
	}
	r.memory.Set(cert.Digest.Hex(), cert, cache.NoExpiration)
	r.metrics.RecordLookup(string(src))
	if r.onLoaded != nil {
		r.onLoaded(ctx, cert, src)
	}
}

func (r *Resolver) loadFromDisk(d cits.HashedID8) (*cits.Certificate, bool) {
	if r.disk == nil {
		return nil, false
	}
	cert, err := r.disk.Load(d)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warnf("ignoring stored certificate %s: %v", d, err)
		}
		return nil, false
	}
	return cert, true
}

func (r *Resolver) fetch(ctx context.Context, d cits.HashedID8) (*cits.Certificate, error) {
	if r.remote == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d)
	}
	data, err := r.remote.FetchCertificate(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("fetch certificate %s: %w", d, err)
	}
	cert, err := cits.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fetch certificate %s: %w", d, err)
	}
	if cert.Digest != d {
		return nil, fmt.Errorf("fetch certificate %s: %w", d, ErrDigestMismatch)
	}
	r.logger.Debugf("fetched certificate %s from authority", cert.Identity())
	if r.disk != nil {
		if err := r.disk.Save(cert); err != nil {
			return nil, fmt.Errorf("persist certificate %s: %w", d, err)
		}
	}
	return cert, nil
}
