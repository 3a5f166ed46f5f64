/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package identity owns the station's signing key and its Enrollment
// Credential and Authorization Ticket.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/config"
	"github.com/kentakayama/its-station/internal/domain/model"
	"github.com/kentakayama/its-station/internal/domain/service"
	"github.com/kentakayama/its-station/internal/keyfile"
	"github.com/kentakayama/its-station/internal/pki"
	"github.com/kentakayama/its-station/internal/signing"
	"github.com/kentakayama/its-station/internal/util"
)

const (
	KeyFile = "itss.key"
	ECFile  = "itss.ec"
	ATFile  = "itss.at"
)

type CertificateResolver interface {
	Resolve(ctx context.Context, digest cits.HashedID8) (*cits.Certificate, error)
}

// HardwareKeyOpener opens a token-resident key by reference URI.
type HardwareKeyOpener func(cfg signing.PKCS11Config, uri string) (signing.Backend, error)

type Config struct {
	Dir string
	// Passphrase protects itss.key; defaults to keyfile.DefaultPassphrase.
	Passphrase string
	HSM        config.HSMConfig
	Enroller   *pki.Enroller
	Authorizer *pki.Authorizer
	Resolver   CertificateResolver
	Journal    service.CredentialEventRepository
	Logger     *zap.Logger
	// OpenHardwareKey defaults to signing.OpenPKCS11.
	OpenHardwareKey HardwareKeyOpener
}

type Manager struct {
	mu    sync.RWMutex
	state State

	dir        string
	passphrase string
	hsm        config.HSMConfig
	openHW     HardwareKeyOpener
	enroller   *pki.Enroller
	authorizer *pki.Authorizer
	resolver   CertificateResolver
	journal    service.CredentialEventRepository
	logger     *zap.SugaredLogger
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	passphrase := cfg.Passphrase
	if passphrase == "" {
		passphrase = keyfile.DefaultPassphrase
	}
	openHW := cfg.OpenHardwareKey
	if openHW == nil {
		openHW = openPKCS11
	}
	return &Manager{
		dir:        cfg.Dir,
		passphrase: passphrase,
		hsm:        cfg.HSM,
		openHW:     openHW,
		enroller:   cfg.Enroller,
		authorizer: cfg.Authorizer,
		resolver:   cfg.Resolver,
		journal:    cfg.Journal,
		logger:     logger.Sugar(),
	}
}

func openPKCS11(cfg signing.PKCS11Config, uri string) (signing.Backend, error) {
	key, err := signing.OpenPKCS11(cfg, uri)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name)
}

func (m *Manager) Backend() signing.Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Key
}

func (m *Manager) EC() *cits.Certificate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.EC
}

func (m *Manager) AT() *cits.Certificate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.AT
}

// Close releases a token-resident key.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.state.Key.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Snapshot returns a consistent copy of the credential set.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// GeneratePrivateKey replaces the signing key with a fresh software key and
// drops EC and AT, which certify the old key.
func (m *Manager) GeneratePrivateKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.EC = nil
	m.state.AT = nil
	if m.hsm.Enabled {
		// the token key stays loaded so Close can still release it
		return fmt.Errorf("generate key on token: %w", signing.ErrUnsupported)
	}
	key, err := signing.GenerateSoftwareKey()
	if err != nil {
		return err
	}
	m.releaseKey(key)
	m.state.Key = key
	m.logger.Infof("Generated a new signing key")
	return nil
}

// releaseKey closes the current key before next replaces it. Callers hold mu.
func (m *Manager) releaseKey(next signing.Backend) {
	c, ok := m.state.Key.(io.Closer)
	if !ok || m.state.Key == next {
		return
	}
	if err := c.Close(); err != nil {
		m.logger.Warnf("Failed to release the previous signing key: %v", err)
	}
}

// Load restores the credential set from the station directory. It never
// fails; the result describes each item.
func (m *Manager) Load() LoadResult {
	var res LoadResult
	state := State{}

	if m.hsm.Enabled {
		key, err := m.openHW(signing.PKCS11Config{
			ModulePath: m.hsm.ModulePath,
			TokenLabel: m.hsm.TokenLabel,
			PIN:        m.hsm.PIN,
		}, m.hsm.KeyURI)
		if err != nil {
			res.Key = res.fail("key", err)
		} else {
			state.Key = key
			res.Key = Decoded
		}
	} else {
		key, err := keyfile.Load(m.path(KeyFile), m.passphrase)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			res.Key = NotFound
		case err != nil:
			res.Key = res.fail("key", err)
		default:
			state.Key = key
			res.Key = Decoded
		}
	}

	if res.OK() {
		state.EC, res.EC = m.readCertificate(&res, ECFile)
		state.AT, res.AT = m.readCertificate(&res, ATFile)
	} else {
		res.EC, res.AT = Skipped, Skipped
	}

	m.mu.Lock()
	m.releaseKey(state.Key)
	m.state = state
	m.mu.Unlock()
	return res
}

func (m *Manager) readCertificate(res *LoadResult, name string) (*cits.Certificate, FileStatus) {
	data, err := os.ReadFile(m.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NotFound
	}
	if err != nil {
		return nil, res.fail(name, err)
	}
	cert, err := cits.Parse(data)
	if err != nil {
		return nil, res.fail(name, err)
	}
	return cert, Decoded
}

// Store persists the credential set. Absent certificates remove stale files.
func (m *Manager) Store() error {
	state := m.Snapshot()
	if state.Key == nil {
		return ErrNoKey
	}
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return err
	}

	if state.Key.Exportable() {
		soft, ok := state.Key.(*signing.SoftwareKey)
		if !ok {
			return ErrNotExportable
		}
		if err := keyfile.Save(m.path(KeyFile), m.passphrase, soft); err != nil {
			return fmt.Errorf("store %s: %w", KeyFile, err)
		}
	}
	if err := m.storeCertificate(ECFile, state.EC); err != nil {
		return err
	}
	return m.storeCertificate(ATFile, state.AT)
}

func (m *Manager) storeCertificate(name string, cert *cits.Certificate) error {
	var err error
	if cert == nil {
		err = util.RemoveIfExists(m.path(name))
	} else {
		err = util.WriteFileAtomic(m.path(name), cert.Data, 0o600)
	}
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

// CertificateByDigest resolves a certificate of any station.
func (m *Manager) CertificateByDigest(ctx context.Context, digest cits.HashedID8) (*cits.Certificate, error) {
	if m.resolver == nil {
		return nil, ErrNoResolver
	}
	return m.resolver.Resolve(ctx, digest)
}

// Enroll obtains a new EC for the current key.
func (m *Manager) Enroll(ctx context.Context) error {
	if m.enroller == nil {
		return ErrNoEnroller
	}
	key := m.Backend()
	if key == nil {
		return ErrNoKey
	}
	res, err := m.enroller.Enroll(ctx, key)
	m.record(ctx, pki.KindEnrollment, res, err)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.EC = res.Certificate
	m.mu.Unlock()
	return nil
}

// Authorize obtains a new AT using the current EC.
func (m *Manager) Authorize(ctx context.Context) error {
	if m.authorizer == nil {
		return ErrNoAuthorizer
	}
	state := m.Snapshot()
	if state.Key == nil {
		return ErrNoKey
	}
	if state.EC == nil {
		return ErrNoEnrolment
	}
	res, err := m.authorizer.Authorize(ctx, state.Key, state.EC)
	m.record(ctx, pki.KindAuthorization, res, err)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.AT = res.Certificate
	m.mu.Unlock()
	return nil
}

func (m *Manager) record(ctx context.Context, kind string, res *pki.Result, err error) {
	if m.journal == nil {
		return
	}
	event := &model.CredentialEvent{Kind: kind, CreatedAt: time.Now().UTC()}
	var rejection *pki.RejectionError
	switch {
	case err == nil:
		event.Outcome = string(res.Outcome)
		event.Digest = res.Certificate.Digest[:]
	case errors.As(err, &rejection):
		event.Outcome = string(rejection.Outcome)
	default:
		return
	}
	if _, jerr := m.journal.Create(ctx, event); jerr != nil {
		m.logger.Warnf("could not journal %s outcome: %v", kind, jerr)
	}
}

// Bootstrap brings the station to a usable credential set: load what is on
// disk, generate a key if there is none, enroll and authorize as needed, and
// persist the result if anything changed.
func (m *Manager) Bootstrap(ctx context.Context) error {
	res := m.Load()
	for item, err := range res.Errors {
		m.logger.Warnf("could not load %s: %v", item, err)
	}

	changed := false
	if !res.OK() {
		if err := m.GeneratePrivateKey(); err != nil {
			return err
		}
		changed = true
	}
	if m.EC() == nil {
		if err := m.Enroll(ctx); err != nil {
			return err
		}
		changed = true
	}
	if m.AT() == nil {
		if err := m.Authorize(ctx); err != nil {
			return err
		}
		changed = true
	}
	if changed {
		return m.Store()
	}
	return nil
}
