/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package codec

import (
	"fmt"
	"math/big"
)

// ETSI TS 102 941 v1.1.1 / TS 103 097 v1.2.1

// CoordinateSize is the fixed length of a NIST P-256 field element.
const CoordinateSize = 32

type SignerIDType int64

const (
	SignerIDSelf           SignerIDType = 0
	SignerIDDigest         SignerIDType = 1
	SignerIDCertificate    SignerIDType = 3
	SignerIDCertificateSet SignerIDType = 4
)

type PKAlgorithm int64

const (
	PKAlgorithmECDSANistP256SHA256 PKAlgorithm = 1
	PKAlgorithmECIESNistP256       PKAlgorithm = 2
)

type EccPointType int

const (
	EccPointXCoordinateOnly EccPointType = 0
	EccPointCompressedLsbY0 EccPointType = 2
	EccPointCompressedLsbY1 EccPointType = 3
	EccPointUncompressed    EccPointType = 4
)

func (t EccPointType) String() string {
	switch t {
	case EccPointXCoordinateOnly:
		return "x-coordinate-only"
	case EccPointCompressedLsbY0:
		return "compressed-lsb-y-0"
	case EccPointCompressedLsbY1:
		return "compressed-lsb-y-1"
	case EccPointUncompressed:
		return "uncompressed"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

const (
	VersionAndTypeExplicit int64 = 2
	VersionAndTypeImplicit int64 = 3
)

// subject types
const (
	SubjectEnrollmentCredential int64 = 0
	SubjectAuthorizationTicket  int64 = 1
	SubjectAuthorizationAuth    int64 = 2
	SubjectEnrollmentAuth       int64 = 3
	SubjectRootCA               int64 = 4
)

// request subject types
const (
	SubjectSecDataExchAnon int64 = 0
	SubjectSecDataExchCsr  int64 = 3
)

type ArrayType int64

const (
	ArrayTypeSpecified  ArrayType = 1
	ArrayTypeFromIssuer ArrayType = 2
)

type RegionType int

const (
	RegionFromIssuer RegionType = 0
	RegionCircle     RegionType = 1
)

// EccPoint is a public point or a signature's R value.
type EccPoint struct {
	Type EccPointType
	X    []byte
	Y    []byte
}

// NewEccPoint encodes big-endian affine coordinates. y may be nil for the
// x-only and compressed forms.
func NewEccPoint(t EccPointType, x, y *big.Int) EccPoint {
	p := EccPoint{Type: t, X: coordinate(x)}
	if t == EccPointUncompressed && y != nil {
		p.Y = coordinate(y)
	}
	return p
}

func coordinate(n *big.Int) []byte {
	if n == nil {
		return make([]byte, CoordinateSize)
	}
	return n.FillBytes(make([]byte, CoordinateSize))
}

type PublicKey struct {
	Algorithm PKAlgorithm
	Key       EccPoint
}

type SignerIdentifier struct {
	Type   SignerIDType
	Digest []byte
	ID     []byte
}

// PsidSspArray lists ITS-AIDs the requested certificate shall permit.
type PsidSspArray struct {
	Type        ArrayType
	Permissions []int64
}

type GeographicRegion struct {
	Type RegionType
}

type EnrolCertSpecificData struct {
	EAID                  string
	PermittedSubjectTypes int64
	Permissions           PsidSspArray
	Region                GeographicRegion
}

type ToBeSignedEnrolmentCertificateRequest struct {
	VersionAndType        int64
	RequestTime           uint64
	SubjectType           int64
	CF                    byte
	SpecificData          EnrolCertSpecificData
	Expiration            uint64
	VerificationKey       PublicKey
	ResponseEncryptionKey PublicKey
}

type AuthCertSpecificData struct {
	AdditionalData []byte
	Permissions    PsidSspArray
	Region         GeographicRegion
}

type ToBeSignedAuthCertRequest struct {
	VersionAndType        int64
	RequestTime           uint64
	SubjectType           int64
	CF                    byte
	SpecificData          AuthCertSpecificData
	ResponseEncryptionKey PublicKey
}

// AuthCertRequest is a CHOICE; anonRequest is the only variant in use.
type AuthCertRequest struct {
	AnonRequest *ToBeSignedAuthCertRequest
}

// Signature is ecdsa_nistp256_with_sha256 with R carried as an x-only point.
type Signature struct {
	R EccPoint
	S *big.Int
}

func NewSignature(r, s *big.Int) Signature {
	return Signature{
		R: NewEccPoint(EccPointXCoordinateOnly, r, nil),
		S: new(big.Int).Set(s),
	}
}

// RS returns the raw signature components.
func (s Signature) RS() (*big.Int, *big.Int) {
	r := new(big.Int).SetBytes(s.R.X)
	if s.S == nil {
		return r, new(big.Int)
	}
	return r, new(big.Int).Set(s.S)
}

// SignedCertificateChain carries raw encoded certificates, root first.
type SignedCertificateChain struct {
	RootCertificate []byte
	Chain           [][]byte
}

type Failure struct {
	Reason  int
	Message string
}

type Variant string

const (
	VariantSuccessfulEnrolment             Variant = "successfulEnrolment"
	VariantFailedEnrolment                 Variant = "failedEnrolment"
	VariantSuccessfulExplicitAuthorization Variant = "successfulExplicitAuthorization"
	VariantSuccessfulImplicitAuthorization Variant = "successfulImplicitAuthorization"
	VariantFailedAuthorization             Variant = "failedAuthorization"
)

type EnrolmentResponse struct {
	Outcome         Variant
	SignedCertChain *SignedCertificateChain `json:",omitempty"`
	Failure         *Failure                `json:",omitempty"`
}

type AuthorizationResponse struct {
	Outcome         Variant
	SignedCertChain *SignedCertificateChain `json:",omitempty"`
	// CRL is carried through undecoded; revocation lists are not processed.
	CRL     []byte   `json:",omitempty"`
	Failure *Failure `json:",omitempty"`
}

// Certificate is the TS 103 097 certificate body as seen by this station.
type Certificate struct {
	Version         int64
	Signer          SignerIdentifier
	SubjectType     int64
	SubjectName     string
	ValidFrom       uint64
	ValidUntil      uint64
	VerificationKey PublicKey
	Signature       *Signature `json:",omitempty"`
}
