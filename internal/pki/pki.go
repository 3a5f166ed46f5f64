/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package pki runs the ETSI TS 102 941 v1.1.1 enrollment and authorization
// exchanges.
package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/metrics"
	"github.com/kentakayama/its-station/internal/signing"
	"github.com/kentakayama/its-station/internal/util"
)

const (
	KindEnrollment    = "enrollment"
	KindAuthorization = "authorization"

	// enrollment requests stay valid for one hour
	requestLifetime = 3600

	placeholderDigest = "12345678"
)

// Options are the request parameters a station may tune.
type Options struct {
	SignerID       string
	EAID           string
	AdditionalData string
	// Permissions lists the ITS-AIDs the certificate shall permit.
	Permissions []int64
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result is a successful exchange.
type Result struct {
	Certificate *cits.Certificate
	Outcome     codec.Variant
}

type exchange struct {
	kind    string
	state   ExchangeState
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func (x *exchange) advance(s ExchangeState) {
	x.logger.Debugf("%s: %s -> %s", x.kind, x.state, s)
	x.state = s
}

func (x *exchange) finish(outcome codec.Variant, accepted bool) {
	if accepted {
		x.advance(Accepted)
	} else {
		x.advance(Rejected)
	}
	x.metrics.RecordExchange(x.kind, string(outcome))
}

func (x *exchange) reject(outcome codec.Variant, resp codec.Record) *RejectionError {
	x.finish(outcome, false)
	dump, err := util.RenderPretty(resp)
	if err != nil {
		dump = fmt.Sprintf("%+v", resp)
	}
	return &RejectionError{Kind: x.kind, Outcome: outcome, Response: resp, Dump: dump}
}

func newExchange(kind string, opts *Options) *exchange {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exchange{kind: kind, state: NoCredential, logger: logger.Sugar(), metrics: opts.Metrics}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func permissions(list []int64) codec.PsidSspArray {
	return codec.PsidSspArray{Type: codec.ArrayTypeSpecified, Permissions: append([]int64(nil), list...)}
}

// responseEncryptionKey returns a fresh one-time key. Responses are not
// encrypted by the authorities this station talks to, so the private half
// is not retained.
func responseEncryptionKey() (codec.PublicKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return codec.PublicKey{}, fmt.Errorf("generate response encryption key: %w", err)
	}
	return cits.EncodeKey(&priv.PublicKey, true), nil
}

func sign(key signing.Backend, input []byte) (*codec.Signature, error) {
	r, s, err := key.SignMessage(input)
	if err != nil {
		return nil, err
	}
	sig := codec.NewSignature(r, s)
	return &sig, nil
}

func rootCertificate(chain *codec.SignedCertificateChain) (*cits.Certificate, error) {
	if chain == nil || len(chain.RootCertificate) == 0 {
		return nil, ErrMissingCertificate
	}
	return cits.Parse(chain.RootCertificate)
}

func decodeFailure(kind string, err error) error {
	return fmt.Errorf("decode %s response: %w", kind, err)
}
