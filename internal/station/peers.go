/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package station

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/domain/model"
	"github.com/kentakayama/its-station/internal/domain/service"
	"github.com/kentakayama/its-station/internal/resolver"
)

// PeerJournal returns a resolver hook that records each certificate the
// first time it is loaded.
func PeerJournal(repo service.PeerCertificateRepository, logger *zap.Logger) func(context.Context, *cits.Certificate, resolver.Source) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sugar := logger.Sugar()
	return func(ctx context.Context, cert *cits.Certificate, src resolver.Source) {
		_, err := repo.CreateIfAbsent(ctx, &model.PeerCertificate{
			Digest:      cert.Digest[:],
			Identity:    cert.Identity(),
			Source:      string(src),
			FirstSeenAt: time.Now().UTC(),
		})
		if err != nil {
			sugar.Warnf("could not journal certificate %s: %v", cert.Digest, err)
		}
	}
}
