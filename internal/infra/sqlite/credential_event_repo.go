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

// CredentialEventRepository handles the enrollment/authorization journal.
type CredentialEventRepository struct {
	db *sql.DB
}

var _ service.CredentialEventRepository = (*CredentialEventRepository)(nil)

func NewCredentialEventRepository(db *sql.DB) *CredentialEventRepository {
	return &CredentialEventRepository{db: db}
}

// Create inserts a new event and returns the inserted id.
func (r *CredentialEventRepository) Create(ctx context.Context, e *model.CredentialEvent) (int64, error) {
	const q = `
		INSERT INTO credential_events (kind, outcome, digest, created_at)
		VALUES (?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q, e.Kind, e.Outcome, e.Digest, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert credential_event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindLatestByKind returns the most recent event of the given kind.
func (r *CredentialEventRepository) FindLatestByKind(ctx context.Context, kind string) (*model.CredentialEvent, error) {
	const q = `
		SELECT id, kind, outcome, digest, created_at
		FROM credential_events
		WHERE kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, kind)
	var e model.CredentialEvent
	if err := row.Scan(&e.ID, &e.Kind, &e.Outcome, &e.Digest, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan credential_event: %w", err)
	}
	return &e, nil
}

// ListRecent returns up to limit events, newest first.
func (r *CredentialEventRepository) ListRecent(ctx context.Context, limit int) ([]*model.CredentialEvent, error) {
	const q = `
		SELECT id, kind, outcome, digest, created_at
		FROM credential_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query credential_events: %w", err)
	}
	defer rows.Close()

	var out []*model.CredentialEvent
	for rows.Next() {
		var e model.CredentialEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.Outcome, &e.Digest, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credential_event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
