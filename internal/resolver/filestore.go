/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/util"
)

// FileStore keeps one file per certificate, {dir}/{hex-digest}.cert.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Path(d cits.HashedID8) string {
	return filepath.Join(s.dir, d.Hex()+".cert")
}

func (s *FileStore) Load(d cits.HashedID8) (*cits.Certificate, error) {
	data, err := os.ReadFile(s.Path(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cert, err := cits.Parse(data)
	if err != nil {
		return nil, err
	}
	if cert.Digest != d {
		return nil, fmt.Errorf("%s: %w", s.Path(d), ErrDigestMismatch)
	}
	return cert, nil
}

func (s *FileStore) Save(cert *cits.Certificate) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return util.WriteFileAtomic(s.Path(cert.Digest), cert.Data, 0o600)
}
