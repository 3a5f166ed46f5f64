/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package station runs the secure messaging loop: periodic signed broadcasts
// out, verify-and-report in.
package station

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/metrics"
	"github.com/kentakayama/its-station/internal/securemsg"
	"github.com/kentakayama/its-station/internal/signing"
	"github.com/kentakayama/its-station/internal/transport"
	"github.com/kentakayama/its-station/internal/util"
)

const (
	DefaultPeriod  = time.Second
	DefaultPayload = "payload"
)

// inbound outcomes, used as the metrics label
const (
	resultVerified   = "verified"
	resultMalformed  = "malformed"
	resultUnresolved = "unresolved"
	resultRejected   = "rejected"
	resultPanic      = "panic"
)

// Credentials is the identity the loop signs with.
type Credentials interface {
	AT() *cits.Certificate
	Backend() signing.Backend
}

type CertificateResolver interface {
	Resolve(ctx context.Context, digest cits.HashedID8) (*cits.Certificate, error)
}

// Report is one verified inbound message.
type Report struct {
	Payload   []byte
	Signer    *cits.Certificate
	From      net.Addr
	Generated time.Time
}

type Config struct {
	Period  time.Duration
	Payload []byte
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Reporter receives verified messages; the default logs them.
	Reporter func(Report)
	// Now defaults to time.Now.
	Now func() time.Time
}

type Loop struct {
	creds    Credentials
	resolver CertificateResolver
	tx       transport.Broadcast

	period   time.Duration
	payload  []byte
	reporter func(Report)
	now      func() time.Time
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics

	mu   sync.Mutex
	seen util.Set[cits.HashedID8]
}

func NewLoop(creds Credentials, resolver CertificateResolver, tx transport.Broadcast, cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		creds:    creds,
		resolver: resolver,
		tx:       tx,
		period:   cfg.Period,
		payload:  cfg.Payload,
		reporter: cfg.Reporter,
		now:      cfg.Now,
		logger:   logger.Sugar(),
		metrics:  cfg.Metrics,
		seen:     util.NewSet[cits.HashedID8](),
	}
	if l.period <= 0 {
		l.period = DefaultPeriod
	}
	if l.payload == nil {
		l.payload = []byte(DefaultPayload)
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.reporter == nil {
		l.reporter = func(r Report) {
			l.logger.Infof("Received verified message %q from %s", r.Payload, r.Signer.Identity())
		}
	}
	return l
}

// Run drives the inbound and outbound activities until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.tx.Serve(ctx, l.HandleDatagram)
	})
	g.Go(func() error {
		// the first message goes out immediately, later ones every period
		l.broadcast(ctx)
		ticker := time.NewTicker(l.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				l.broadcast(ctx)
			}
		}
	})
	l.logger.Info("Ready.")

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// SendOnce signs the payload under the current AT and broadcasts it.
func (l *Loop) SendOnce(ctx context.Context) error {
	msg, err := securemsg.Build(l.creds.AT(), l.creds.Backend(), l.payload, l.now())
	if err == nil {
		err = l.tx.Send(ctx, msg)
	}
	l.metrics.RecordSent(err)
	return err
}

func (l *Loop) broadcast(ctx context.Context) {
	if err := l.SendOnce(ctx); err != nil {
		l.logger.Warnf("send failed: %v", err)
	}
}

// HandleDatagram verifies one inbound datagram and reports it. Failures are
// logged and dropped.
func (l *Loop) HandleDatagram(ctx context.Context, data []byte, from net.Addr) {
	defer func() {
		if r := recover(); r != nil {
			l.metrics.RecordReceived(resultPanic)
			l.logger.Errorf("Error when processing message from %s: %v", from, r)
		}
	}()

	report, result, err := l.verify(ctx, data)
	l.metrics.RecordReceived(result)
	if err != nil {
		l.logger.Warnf("Error when processing message from %s: %v", from, err)
		return
	}
	report.From = from

	l.mu.Lock()
	if l.seen.Add(report.Signer.Digest) {
		l.logger.Debugf("new peer %s", report.Signer.Identity())
	}
	l.mu.Unlock()

	l.reporter(*report)
}

func (l *Loop) verify(ctx context.Context, data []byte) (*Report, string, error) {
	env, err := securemsg.Parse(data)
	if err != nil {
		return nil, resultMalformed, err
	}
	signer, err := l.resolver.Resolve(ctx, env.Signer)
	if err != nil {
		return nil, resultUnresolved, fmt.Errorf("resolve signer %s: %w", env.Signer, err)
	}
	if err := env.Verify(signer); err != nil {
		return nil, resultRejected, err
	}
	return &Report{
		Payload:   env.Payload,
		Signer:    signer,
		Generated: env.Generated(),
	}, resultVerified, nil
}

// Peers reports how many distinct stations have been heard from.
func (l *Loop) Peers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen.Len()
}
