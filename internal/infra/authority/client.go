/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package authority

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/config"
	"github.com/kentakayama/its-station/internal/logging"
)

const (
	enrollPath  = "cits/ts_102941_v111/ea/enroll"
	approvePath = "cits/ts_102941_v111/aa/approve"
	digestPath  = "cits/digest"

	defaultTimeout     = 60 * time.Second
	defaultUserAgent   = "itss/authority-client"
	defaultContentType = "application/octet-stream"
	maxResponseSize    = 1 << 20
)

var (
	ErrEmptyRequest     = errors.New("refusing to submit empty request")
	ErrUnexpectedStatus = errors.New("unexpected authority status")
)

type Client struct {
	eaURL      *url.URL
	aaURL      *url.URL
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

var _ Authority = (*Client)(nil)

func NewClient(cfg config.AuthorityConfig) (*Client, error) {
	ea, err := parseBaseURL(cfg.EnrollmentURL)
	if err != nil {
		return nil, fmt.Errorf("parse enrollment authority URL: %w", err)
	}
	aa, err := parseBaseURL(cfg.AuthorizationURL)
	if err != nil {
		return nil, fmt.Errorf("parse authorization authority URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if ea.Scheme == "https" || aa.Scheme == "https" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureTLS}
	}

	return &Client{
		eaURL: ea,
		aaURL: aa,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logging.OrNop(cfg.Logger).Sugar(),
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

// Enroll submits an encoded EnrolmentRequest to the Enrollment Authority.
func (c *Client) Enroll(ctx context.Context, request []byte) ([]byte, error) {
	return c.put(ctx, c.eaURL.JoinPath(enrollPath), request)
}

// Authorize submits an encoded AuthorizationRequest to the Authorization
// Authority.
func (c *Client) Authorize(ctx context.Context, request []byte) ([]byte, error) {
	return c.put(ctx, c.aaURL.JoinPath(approvePath), request)
}

// FetchCertificate downloads a certificate published by the Authorization
// Authority.
func (c *Client) FetchCertificate(ctx context.Context, digest cits.HashedID8) ([]byte, error) {
	target := c.aaURL.JoinPath(digestPath, digest.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", defaultUserAgent)
	return c.do(req)
}

func (c *Client) put(ctx context.Context, target *url.URL, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyRequest
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", defaultContentType)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", defaultUserAgent)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	c.logger.Debugf("%s %s", req.Method, req.URL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w %s from %s: %s", ErrUnexpectedStatus, resp.Status, req.URL, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debugf("%s %s: %s, %d bytes", req.Method, req.URL, resp.Status, len(body))
	return body, nil
}
