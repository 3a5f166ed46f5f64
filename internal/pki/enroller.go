/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pki

import (
	"context"
	"fmt"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

type EnrollmentTransport interface {
	Enroll(ctx context.Context, request []byte) ([]byte, error)
}

// Enroller obtains an Enrollment Credential from the Enrollment Authority.
type Enroller struct {
	transport EnrollmentTransport
	opts      Options
}

func NewEnroller(transport EnrollmentTransport, opts Options) *Enroller {
	return &Enroller{transport: transport, opts: opts}
}

// BuildRequest returns a signed EnrolmentRequest for key.
func (e *Enroller) BuildRequest(key signing.Backend) (*codec.EnrolmentRequest, error) {
	return e.buildRequest(key, newExchange(KindEnrollment, &e.opts))
}

func (e *Enroller) buildRequest(key signing.Backend, x *exchange) (*codec.EnrolmentRequest, error) {
	pub, err := signing.PublicKey(key)
	if err != nil {
		return nil, err
	}
	encKey, err := responseEncryptionKey()
	if err != nil {
		return nil, err
	}
	requestTime := cits.Time32(e.opts.now())

	req := &codec.EnrolmentRequest{
		Signer: codec.SignerIdentifier{
			Type:   codec.SignerIDCertificate,
			Digest: []byte(placeholderDigest),
			ID:     []byte(e.opts.SignerID),
		},
		Request: codec.ToBeSignedEnrolmentCertificateRequest{
			VersionAndType: codec.VersionAndTypeExplicit,
			RequestTime:    requestTime,
			SubjectType:    codec.SubjectSecDataExchCsr,
			SpecificData: codec.EnrolCertSpecificData{
				EAID:                  e.opts.EAID,
				PermittedSubjectTypes: codec.SubjectSecDataExchAnon,
				Permissions:           permissions(e.opts.Permissions),
				Region:                codec.GeographicRegion{Type: codec.RegionFromIssuer},
			},
			Expiration:            requestTime + requestLifetime,
			VerificationKey:       cits.EncodeKey(pub, false),
			ResponseEncryptionKey: encKey,
		},
	}
	if len(req.Signer.ID) == 0 {
		req.Signer.ID = nil
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

// Enroll runs one enrollment exchange. A response other than
// successfulEnrolment is returned as *RejectionError.
func (e *Enroller) Enroll(ctx context.Context, key signing.Backend) (*Result, error) {
	x := newExchange(KindEnrollment, &e.opts)
	req, err := e.buildRequest(key, x)
	if err != nil {
		return nil, fmt.Errorf("build enrollment request: %w", err)
	}
	encoded, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode enrollment request: %w", err)
	}

	body, err := e.transport.Enroll(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("send enrollment request: %w", err)
	}
	x.advance(Transmitted)

	var resp codec.EnrolmentResponse
	if err := codec.Unmarshal(body, &resp); err != nil {
		return nil, decodeFailure(KindEnrollment, err)
	}
	if resp.Outcome != codec.VariantSuccessfulEnrolment {
		return nil, x.reject(resp.Outcome, &resp)
	}
	ec, err := rootCertificate(resp.SignedCertChain)
	if err != nil {
		return nil, decodeFailure(KindEnrollment, err)
	}
	x.finish(resp.Outcome, true)
	x.logger.Infof("Enrollment finished successfully: %s", ec.Identity())
	return &Result{Certificate: ec, Outcome: resp.Outcome}, nil
}
