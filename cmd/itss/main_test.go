/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/identity"
	"github.com/kentakayama/its-station/internal/pki"
	"github.com/kentakayama/its-station/internal/pki/pkitest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStatus_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "status", dir)
	require.Nil(t, err)
	assert.Contains(t, out, "Key: not-found")
	assert.Contains(t, out, "EC:  skipped")
	assert.Contains(t, out, "Known peer certificates: 0")
}

func TestRun_AuthorizationRejected(t *testing.T) {
	ca := pkitest.New(t)
	ca.AuthorizeOutcome = codec.VariantFailedAuthorization
	dir := t.TempDir()

	_, stderr, err := execute(t, "run", dir, "-e", ca.URL(), "-a", ca.URL(), "--log-level", "error")
	var rejection *pki.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Contains(t, stderr, "authorization denied")

	// the key and EC are not persisted after a fatal rejection
	_, statErr := os.Stat(filepath.Join(dir, identity.ATFile))
	assert.True(t, os.IsNotExist(statErr))

	out, _, err := execute(t, "status", dir)
	require.Nil(t, err)
	assert.Contains(t, out, string(codec.VariantSuccessfulEnrolment))
	assert.Contains(t, out, string(codec.VariantFailedAuthorization))
}

func TestRun_InvalidG5Sim(t *testing.T) {
	_, _, err := execute(t, "run", t.TempDir(), "--g5-sim", "not a group")
	assert.NotNil(t, err)
}

func TestBindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("ea", "", "")
	v := viper.New()

	require.Nil(t, bindFlags(v, flags, map[string]string{"authority.ea_url": "ea"}))
	require.Nil(t, flags.Set("ea", "http://ea.example"))
	assert.Equal(t, "http://ea.example", v.GetString("authority.ea_url"))

	err := bindFlags(v, flags, map[string]string{"authority.aa_url": "aa"})
	assert.ErrorContains(t, err, "--aa")
}
