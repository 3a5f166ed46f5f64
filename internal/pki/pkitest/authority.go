/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package pkitest provides an in-process Enrollment and Authorization
// Authority for tests.
package pkitest

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

// Prefix is the path the authorities are mounted under.
const Prefix = "/croads/demo-ca"

type Authority struct {
	Server *httptest.Server
	Key    *signing.SoftwareKey

	mu sync.Mutex
	// EnrollOutcome and AuthorizeOutcome select the response variant;
	// empty means success (explicit for authorization).
	EnrollOutcome    codec.Variant
	AuthorizeOutcome codec.Variant
	// CRL is attached to successful authorization responses.
	CRL []byte

	enrollCalls    int
	authorizeCalls int
	digestCalls    int
	serial         int

	lastEnrolment     *codec.EnrolmentRequest
	lastAuthorization *codec.AuthorizationRequest

	enrolled  map[cits.HashedID8]*ecdsa.PublicKey
	published map[cits.HashedID8][]byte
}

// New starts an authority that is shut down with the test.
func New(tb testing.TB) *Authority {
	tb.Helper()
	key, err := signing.GenerateSoftwareKey()
	if err != nil {
		tb.Fatalf("generate authority key: %v", err)
	}
	a := &Authority{
		Key:       key,
		enrolled:  make(map[cits.HashedID8]*ecdsa.PublicKey),
		published: make(map[cits.HashedID8][]byte),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("PUT "+Prefix+"/cits/ts_102941_v111/ea/enroll", a.handleEnroll)
	mux.HandleFunc("PUT "+Prefix+"/cits/ts_102941_v111/aa/approve", a.handleApprove)
	mux.HandleFunc("GET "+Prefix+"/cits/digest/{digest}", a.handleDigest)
	a.Server = httptest.NewServer(mux)
	tb.Cleanup(a.Server.Close)
	return a
}

// URL is the base URL of both authorities.
func (a *Authority) URL() string {
	return a.Server.URL + Prefix
}

func (a *Authority) Calls() (enroll, authorize, digest int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enrollCalls, a.authorizeCalls, a.digestCalls
}

func (a *Authority) LastEnrolment() *codec.EnrolmentRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastEnrolment
}

func (a *Authority) LastAuthorization() *codec.AuthorizationRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAuthorization
}

// IssueTicket issues and publishes an Authorization Ticket for key, as if
// another station had been authorized.
func (a *Authority) IssueTicket(key signing.Backend, name string) (*cits.Certificate, error) {
	pub, err := signing.PublicKey(key)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issue(codec.SubjectAuthorizationTicket, name, pub)
}

func (a *Authority) issue(subjectType int64, name string, pub *ecdsa.PublicKey) (*cits.Certificate, error) {
	a.serial++
	now := time.Now()
	cert, err := cits.Issue(codec.Certificate{
		Version:         2,
		Signer:          codec.SignerIdentifier{Type: codec.SignerIDSelf},
		SubjectType:     subjectType,
		SubjectName:     fmt.Sprintf("%s-%d", name, a.serial),
		ValidFrom:       cits.Time32(now),
		ValidUntil:      cits.Time32(now.Add(24 * time.Hour)),
		VerificationKey: cits.EncodeKey(pub, false),
	}, a.Key)
	if err != nil {
		return nil, err
	}
	a.published[cert.Digest] = cert.Data
	return cert, nil
}

func (a *Authority) handleEnroll(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enrollCalls++

	body, _ := io.ReadAll(r.Body)
	req, input, err := codec.DecodeEnrolmentRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.lastEnrolment = req

	pub, err := cits.DecodeKey(req.Request.VerificationKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rs, ss := req.Signature.RS()
	if !signing.Verify(pub, input, rs, ss) {
		http.Error(w, "bad proof of possession", http.StatusBadRequest)
		return
	}

	resp := codec.EnrolmentResponse{Outcome: a.EnrollOutcome}
	if resp.Outcome == "" || resp.Outcome == codec.VariantSuccessfulEnrolment {
		ec, err := a.issue(codec.SubjectEnrollmentCredential, "its-s", pub)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		a.enrolled[ec.Digest] = pub
		resp.Outcome = codec.VariantSuccessfulEnrolment
		resp.SignedCertChain = &codec.SignedCertificateChain{RootCertificate: ec.Data}
	} else {
		resp.Failure = &codec.Failure{Reason: 1, Message: "enrolment denied"}
	}
	write(w, &resp)
}

func (a *Authority) handleApprove(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authorizeCalls++

	body, _ := io.ReadAll(r.Body)
	req, input, err := codec.DecodeAuthorizationRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.lastAuthorization = req

	digest, err := cits.ParseHashedID8(req.Signer.Digest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pub, ok := a.enrolled[digest]
	if !ok {
		http.Error(w, "unknown enrolment credential", http.StatusForbidden)
		return
	}
	rs, ss := req.Signature.RS()
	if !signing.Verify(pub, input, rs, ss) {
		http.Error(w, "bad signature", http.StatusBadRequest)
		return
	}

	resp := codec.AuthorizationResponse{Outcome: a.AuthorizeOutcome}
	switch resp.Outcome {
	case "", codec.VariantSuccessfulExplicitAuthorization, codec.VariantSuccessfulImplicitAuthorization:
		at, err := a.issue(codec.SubjectAuthorizationTicket, "at", pub)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if resp.Outcome == "" {
			resp.Outcome = codec.VariantSuccessfulExplicitAuthorization
		}
		resp.SignedCertChain = &codec.SignedCertificateChain{RootCertificate: at.Data}
		resp.CRL = a.CRL
	default:
		resp.Failure = &codec.Failure{Reason: 2, Message: "authorization denied"}
	}
	write(w, &resp)
}

func (a *Authority) handleDigest(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.digestCalls++

	digest, err := cits.ParseHashedID8Hex(r.PathValue("digest"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, ok := a.published[digest]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func write(w http.ResponseWriter, r codec.Record) {
	data, err := codec.Marshal(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}
