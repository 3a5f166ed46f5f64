/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kentakayama/its-station/internal/metrics"
)

func newTestHandler(m *metrics.Metrics) *handler {
	return newHandler(func() Status {
		return Status{Identity: "its-s-1 [0011223344556677]", ATDigest: "8899aabbccddeeff", Peers: 2, Certificates: 3}
	}, m.Registry, zap.NewNop().Sugar())
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(metrics.New()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.Nil(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got Status
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "8899aabbccddeeff", got.ATDigest)
	assert.Equal(t, 2, got.Peers)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.RecordSent(nil)
	srv := httptest.NewServer(newTestHandler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.Nil(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "itss_messages_sent_total 1"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(metrics.New()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/status", "application/json", nil)
	require.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
