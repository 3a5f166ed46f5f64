/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

func newTestCertificate(t *testing.T, name string) *cits.Certificate {
	t.Helper()
	key, err := signing.GenerateSoftwareKey()
	require.Nil(t, err)
	pub, err := signing.PublicKey(key)
	require.Nil(t, err)
	cert, err := cits.Issue(codec.Certificate{
		Version:         2,
		Signer:          codec.SignerIdentifier{Type: codec.SignerIDSelf},
		SubjectType:     codec.SubjectAuthorizationTicket,
		SubjectName:     name,
		VerificationKey: cits.EncodeKey(pub, false),
	}, key)
	require.Nil(t, err)
	return cert
}

type countingDisk struct {
	inner *FileStore
	loads atomic.Int32
	saves atomic.Int32
}

func (d *countingDisk) Load(digest cits.HashedID8) (*cits.Certificate, error) {
	d.loads.Add(1)
	return d.inner.Load(digest)
}

func (d *countingDisk) Save(cert *cits.Certificate) error {
	d.saves.Add(1)
	return d.inner.Save(cert)
}

type countingRemote struct {
	certs map[cits.HashedID8][]byte
	err   error
	calls atomic.Int32
}

func (r *countingRemote) FetchCertificate(_ context.Context, d cits.HashedID8) ([]byte, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	data, ok := r.certs[d]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return data, nil
}

func TestResolve_RemoteThenMemory(t *testing.T) {
	dir := t.TempDir()
	cert := newTestCertificate(t, "peer")
	disk := &countingDisk{inner: NewFileStore(dir)}
	remote := &countingRemote{certs: map[cits.HashedID8][]byte{cert.Digest: cert.Data}}

	var seen []Source
	r := New(Config{
		Disk:   disk,
		Remote: remote,
		OnLoaded: func(_ context.Context, _ *cits.Certificate, src Source) {
			seen = append(seen, src)
		},
	})

	first, err := r.Resolve(context.Background(), cert.Digest)
	require.Nil(t, err)
	assert.True(t, cert.Equal(first))
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, int32(1), disk.saves.Load())
	assert.FileExists(t, filepath.Join(dir, cert.Digest.Hex()+".cert"))

	second, err := r.Resolve(context.Background(), cert.Digest)
	require.Nil(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, int32(1), remote.calls.Load(), "second resolution must not reach the authority")
	assert.Equal(t, int32(1), disk.loads.Load(), "second resolution must not touch the disk")
	assert.Equal(t, []Source{SourceRemote}, seen)
	assert.Equal(t, 1, r.Len())
}

func TestResolve_DiskTier(t *testing.T) {
	dir := t.TempDir()
	cert := newTestCertificate(t, "stored")
	require.Nil(t, NewFileStore(dir).Save(cert))

	remote := &countingRemote{}
	r := New(Config{Disk: NewFileStore(dir), Remote: remote})

	got, err := r.Resolve(context.Background(), cert.Digest)
	require.Nil(t, err)
	assert.True(t, cert.Equal(got))
	assert.Equal(t, int32(0), remote.calls.Load())
}

func TestResolve_CorruptDiskFallsBackToRemote(t *testing.T) {
	dir := t.TempDir()
	cert := newTestCertificate(t, "peer")
	store := NewFileStore(dir)
	require.Nil(t, os.WriteFile(store.Path(cert.Digest), []byte("junk"), 0o600))

	remote := &countingRemote{certs: map[cits.HashedID8][]byte{cert.Digest: cert.Data}}
	r := New(Config{Disk: store, Remote: remote})

	got, err := r.Resolve(context.Background(), cert.Digest)
	require.Nil(t, err)
	assert.True(t, cert.Equal(got))
	assert.Equal(t, int32(1), remote.calls.Load())

	// the remote copy replaced the corrupt file
	reloaded, err := store.Load(cert.Digest)
	require.Nil(t, err)
	assert.True(t, cert.Equal(reloaded))
}

func TestResolve_RemoteFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	r := New(Config{Disk: NewFileStore(t.TempDir()), Remote: &countingRemote{err: boom}})

	_, err := r.Resolve(context.Background(), cits.DigestOf([]byte("unknown")))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Len())
}

type readOnlyDisk struct {
	*FileStore
	err error
}

func (d readOnlyDisk) Save(*cits.Certificate) error {
	return d.err
}

func TestResolve_DiskSaveFailurePropagates(t *testing.T) {
	cert := newTestCertificate(t, "peer")
	remote := &countingRemote{certs: map[cits.HashedID8][]byte{cert.Digest: cert.Data}}
	full := errors.New("no space left on device")
	r := New(Config{Disk: readOnlyDisk{FileStore: NewFileStore(t.TempDir()), err: full}, Remote: remote})

	_, err := r.Resolve(context.Background(), cert.Digest)
	assert.ErrorIs(t, err, full)
	assert.Equal(t, 0, r.Len())

	// nothing was cached, so the next lookup retries the authority
	_, err = r.Resolve(context.Background(), cert.Digest)
	assert.ErrorIs(t, err, full)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestResolve_DigestMismatch(t *testing.T) {
	cert := newTestCertificate(t, "peer")
	other := cits.DigestOf([]byte("other"))
	remote := &countingRemote{certs: map[cits.HashedID8][]byte{other: cert.Data}}
	r := New(Config{Remote: remote})

	_, err := r.Resolve(context.Background(), other)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestResolve_NoTiers(t *testing.T) {
	_, err := New(Config{}).Resolve(context.Background(), cits.DigestOf([]byte("x")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_ConcurrentCollapse(t *testing.T) {
	cert := newTestCertificate(t, "peer")
	remote := &countingRemote{certs: map[cits.HashedID8][]byte{cert.Digest: cert.Data}}
	r := New(Config{Disk: NewFileStore(t.TempDir()), Remote: remote})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Resolve(context.Background(), cert.Digest)
			assert.Nil(t, err)
			assert.True(t, cert.Equal(got))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	cert := newTestCertificate(t, "own")
	r := New(Config{Disk: NewFileStore(dir), Remote: &countingRemote{}})

	require.Nil(t, r.Store(context.Background(), cert))
	got, err := r.Resolve(context.Background(), cert.Digest)
	require.Nil(t, err)
	assert.True(t, cert.Equal(got))
	assert.FileExists(t, filepath.Join(dir, cert.Digest.Hex()+".cert"))
}

func TestFileStore_NotFound(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Load(cits.DigestOf([]byte("x")))
	assert.ErrorIs(t, err, ErrNotFound)
}
