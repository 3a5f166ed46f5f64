/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pki

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

type AuthorizationTransport interface {
	Authorize(ctx context.Context, request []byte) ([]byte, error)
}

// Authorizer exchanges an Enrollment Credential for an Authorization Ticket.
type Authorizer struct {
	transport AuthorizationTransport
	opts      Options
}

func NewAuthorizer(transport AuthorizationTransport, opts Options) *Authorizer {
	return &Authorizer{transport: transport, opts: opts}
}

// BuildRequest returns a signed AuthorizationRequest naming ec as signer.
func (a *Authorizer) BuildRequest(key signing.Backend, ec *cits.Certificate) (*codec.AuthorizationRequest, error) {
	return a.buildRequest(key, ec, newExchange(KindAuthorization, &a.opts))
}

func (a *Authorizer) buildRequest(key signing.Backend, ec *cits.Certificate, x *exchange) (*codec.AuthorizationRequest, error) {
	if ec == nil {
		return nil, ErrNoEnrolment
	}
	encKey, err := responseEncryptionKey()
	if err != nil {
		return nil, err
	}
	var additional []byte
	if a.opts.AdditionalData != "" {
		additional = []byte(a.opts.AdditionalData)
	}

	req := &codec.AuthorizationRequest{
		Signer: codec.SignerIdentifier{
			Type:   codec.SignerIDCertificate,
			Digest: bytes.Clone(ec.Digest[:]),
		},
		Request: codec.AuthCertRequest{
			AnonRequest: &codec.ToBeSignedAuthCertRequest{
				VersionAndType: codec.VersionAndTypeExplicit,
				RequestTime:    cits.Time32(a.opts.now()),
				SubjectType:    codec.SubjectSecDataExchAnon,
				SpecificData: codec.AuthCertSpecificData{
					AdditionalData: additional,
					Permissions:    permissions(a.opts.Permissions),
					Region:         codec.GeographicRegion{Type: codec.RegionFromIssuer},
				},
				ResponseEncryptionKey: encKey,
			},
		},
	}
	x.advance(RequestBuilt)

	input, err := req.SigningInput()
	if err != nil {
		return nil, err
	}
	if req.Signature, err = sign(key, input); err != nil {
		return nil, err
	}
	x.advance(RequestSigned)
	return req, nil
}

// Authorize runs one authorization exchange. Both explicit and implicit
// success variants are accepted; anything else is a *RejectionError.
func (a *Authorizer) Authorize(ctx context.Context, key signing.Backend, ec *cits.Certificate) (*Result, error) {
	x := newExchange(KindAuthorization, &a.opts)
	req, err := a.buildRequest(key, ec, x)
	if err != nil {
		return nil, fmt.Errorf("build authorization request: %w", err)
	}
	encoded, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode authorization request: %w", err)
	}

	body, err := a.transport.Authorize(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("send authorization request: %w", err)
	}
	x.advance(Transmitted)

	var resp codec.AuthorizationResponse
	if err := codec.Unmarshal(body, &resp); err != nil {
		return nil, decodeFailure(KindAuthorization, err)
	}
	switch resp.Outcome {
	case codec.VariantSuccessfulExplicitAuthorization, codec.VariantSuccessfulImplicitAuthorization:
	default:
		return nil, x.reject(resp.Outcome, &resp)
	}
	at, err := rootCertificate(resp.SignedCertChain)
	if err != nil {
		return nil, decodeFailure(KindAuthorization, err)
	}
	if len(resp.CRL) > 0 {
		x.logger.Infof("ignoring CRL (%d bytes) carried in the authorization response", len(resp.CRL))
	}
	x.finish(resp.Outcome, true)
	x.logger.Infof("Authorization ticket obtained successfully: %s", at.Digest)
	return &Result{Certificate: at, Outcome: resp.Outcome}, nil
}
