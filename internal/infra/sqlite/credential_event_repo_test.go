/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/kentakayama/its-station/internal/domain/model"
)

func TestCredentialEvent_CreateFindLatest(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewCredentialEventRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	events := []*model.CredentialEvent{
		{Kind: "enrollment", Outcome: "successfulEnrolment", Digest: []byte("ec-00001"), CreatedAt: now.Add(-2 * time.Minute)},
		{Kind: "authorization", Outcome: "failedAuthorization", CreatedAt: now.Add(-time.Minute)},
		{Kind: "authorization", Outcome: "successfulExplicitAuthorization", Digest: []byte("at-00001"), CreatedAt: now},
	}
	for _, e := range events {
		id, err := repo.Create(ctx, e)
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		if id == 0 {
			t.Fatalf("expected non-zero id")
		}
	}

	got, err := repo.FindLatestByKind(ctx, "authorization")
	if err != nil {
		t.Fatalf("FindLatestByKind error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected event, got nil")
	}
	if got.Outcome != "successfulExplicitAuthorization" || !bytes.Equal(got.Digest, []byte("at-00001")) {
		t.Fatalf("unexpected latest event: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: want %v, got %v", now, got.CreatedAt)
	}

	none, err := repo.FindLatestByKind(ctx, "revocation")
	if err != nil {
		t.Fatalf("FindLatestByKind error: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unknown kind, got %+v", none)
	}
}

func TestCredentialEvent_ListRecent(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewCredentialEventRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	for i := range 3 {
		e := &model.CredentialEvent{Kind: "enrollment", Outcome: "failedEnrolment", CreatedAt: now.Add(time.Duration(i) * time.Second)}
		if _, err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	list, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 events, got %d", len(list))
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}
	if list[0].Digest != nil {
		t.Fatalf("expected nil digest for rejected exchange, got %x", list[0].Digest)
	}
}
