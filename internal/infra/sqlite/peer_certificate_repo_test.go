/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/kentakayama/its-station/internal/domain/model"
)

func TestPeerCertificate_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewPeerCertificateRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	peer := &model.PeerCertificate{
		Digest:      []byte{0xde, 0xad, 0xbe, 0xef, 0, 1, 2, 3},
		Identity:    "at-7 [deadbeef00010203]",
		Source:      "remote",
		FirstSeenAt: now,
	}

	inserted, err := repo.CreateIfAbsent(ctx, peer)
	if err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first sighting to be inserted")
	}

	again := *peer
	again.Source = "disk"
	again.FirstSeenAt = now.Add(time.Hour)
	inserted, err = repo.CreateIfAbsent(ctx, &again)
	if err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate digest to be ignored")
	}

	got, err := repo.FindByDigest(ctx, peer.Digest)
	if err != nil {
		t.Fatalf("FindByDigest error: %v", err)
	}
	if got == nil || got.Source != "remote" || !got.FirstSeenAt.Equal(now) {
		t.Fatalf("unexpected sighting: %+v", got)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 peer, got %d", n)
	}

	list, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent error: %v", err)
	}
	if len(list) != 1 || list[0].Identity != peer.Identity {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestPeerCertificate_FindByDigest_NotFound(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	got, err := NewPeerCertificateRepository(db).FindByDigest(ctx, []byte("missing!"))
	if err != nil {
		t.Fatalf("FindByDigest error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
