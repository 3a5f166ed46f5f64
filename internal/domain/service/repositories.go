/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/kentakayama/its-station/internal/domain/model"
)

// CredentialEventRepository defines the interface for the enrollment and
// authorization journal.
type CredentialEventRepository interface {
	Create(ctx context.Context, e *model.CredentialEvent) (int64, error)
	FindLatestByKind(ctx context.Context, kind string) (*model.CredentialEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*model.CredentialEvent, error)
}

// PeerCertificateRepository defines the interface for peer certificate
// sightings.
type PeerCertificateRepository interface {
	CreateIfAbsent(ctx context.Context, p *model.PeerCertificate) (bool, error)
	FindByDigest(ctx context.Context, digest []byte) (*model.PeerCertificate, error)
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]*model.PeerCertificate, error)
}
