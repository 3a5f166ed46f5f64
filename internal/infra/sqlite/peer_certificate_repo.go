/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kentakayama/its-station/internal/domain/model"
	"github.com/kentakayama/its-station/internal/domain/service"
)

// PeerCertificateRepository handles peer certificate sightings.
type PeerCertificateRepository struct {
	db *sql.DB
}

var _ service.PeerCertificateRepository = (*PeerCertificateRepository)(nil)

func NewPeerCertificateRepository(db *sql.DB) *PeerCertificateRepository {
	return &PeerCertificateRepository{db: db}
}

// CreateIfAbsent records p unless its digest is already known. It reports
// whether a row was inserted.
func (r *PeerCertificateRepository) CreateIfAbsent(ctx context.Context, p *model.PeerCertificate) (bool, error) {
	const q = `
		INSERT OR IGNORE INTO peer_certificates (digest, identity, source, first_seen_at)
		VALUES (?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q, p.Digest, p.Identity, p.Source, p.FirstSeenAt)
	if err != nil {
		return false, fmt.Errorf("insert peer_certificate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FindByDigest returns the sighting for a digest.
func (r *PeerCertificateRepository) FindByDigest(ctx context.Context, digest []byte) (*model.PeerCertificate, error) {
	const q = `
		SELECT id, digest, identity, source, first_seen_at
		FROM peer_certificates
		WHERE digest = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, digest)
	var p model.PeerCertificate
	if err := row.Scan(&p.ID, &p.Digest, &p.Identity, &p.Source, &p.FirstSeenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan peer_certificate: %w", err)
	}
	return &p, nil
}

func (r *PeerCertificateRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM peer_certificates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count peer_certificates: %w", err)
	}
	return n, nil
}

// ListRecent returns up to limit sightings, newest first.
func (r *PeerCertificateRepository) ListRecent(ctx context.Context, limit int) ([]*model.PeerCertificate, error) {
	const q = `
		SELECT id, digest, identity, source, first_seen_at
		FROM peer_certificates
		ORDER BY first_seen_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query peer_certificates: %w", err)
	}
	defer rows.Close()

	var out []*model.PeerCertificate
	for rows.Next() {
		var p model.PeerCertificate
		if err := rows.Scan(&p.ID, &p.Digest, &p.Identity, &p.Source, &p.FirstSeenAt); err != nil {
			return nil, fmt.Errorf("scan peer_certificate: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
