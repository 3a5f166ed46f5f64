/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package codec

import (
	"bytes"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Record is a schema type that knows its own DER form.
type Record interface {
	MarshalDER(b *cryptobyte.Builder)
	UnmarshalDER(s *cryptobyte.String) error
}

func (p *EccPoint) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Enum(int64(p.Type))
		b.AddASN1OctetString(p.X)
		if p.Type == EccPointUncompressed {
			b.AddASN1(tagPointY, func(b *cryptobyte.Builder) {
				b.AddBytes(p.Y)
			})
		}
	})
}

func (p *EccPoint) UnmarshalDER(s *cryptobyte.String) error {
	var seq, y cryptobyte.String
	var typ int
	var hasY bool
	if !s.ReadASN1(&seq, asn1.SEQUENCE) ||
		!seq.ReadASN1Enum(&typ) ||
		!readBytes(&seq, &p.X) ||
		!seq.ReadOptionalASN1(&y, &hasY, tagPointY) ||
		!seq.Empty() {
		return malformed("EccPoint")
	}
	p.Type = EccPointType(typ)
	if len(p.X) != CoordinateSize {
		return ErrInvalidCoordLen
	}
	p.Y = nil
	if hasY {
		if len(y) != CoordinateSize {
			return ErrInvalidCoordLen
		}
		p.Y = bytes.Clone(y)
	}
	if p.Type == EccPointUncompressed && p.Y == nil {
		return malformed("EccPoint")
	}
	return nil
}

func (k *PublicKey) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(int64(k.Algorithm))
		k.Key.MarshalDER(b)
	})
}

func (k *PublicKey) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	var alg int64
	if !s.ReadASN1(&seq, asn1.SEQUENCE) || !seq.ReadASN1Integer(&alg) {
		return malformed("PublicKey")
	}
	k.Algorithm = PKAlgorithm(alg)
	if err := k.Key.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.Empty() {
		return malformed("PublicKey")
	}
	return nil
}

func (id *SignerIdentifier) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(int64(id.Type))
		b.AddASN1OctetString(id.Digest)
		b.AddASN1OctetString(id.ID)
	})
}

func (id *SignerIdentifier) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	var typ int64
	if !s.ReadASN1(&seq, asn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&typ) ||
		!readBytes(&seq, &id.Digest) ||
		!readBytes(&seq, &id.ID) ||
		!seq.Empty() {
		return malformed("SignerIdentifier")
	}
	id.Type = SignerIDType(typ)
	return nil
}

func (a *PsidSspArray) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(int64(a.Type))
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			for _, psid := range a.Permissions {
				b.AddASN1Int64(psid)
			}
		})
	})
}

func (a *PsidSspArray) UnmarshalDER(s *cryptobyte.String) error {
	var seq, list cryptobyte.String
	var typ int64
	if !s.ReadASN1(&seq, asn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&typ) ||
		!seq.ReadASN1(&list, asn1.SEQUENCE) ||
		!seq.Empty() {
		return malformed("PsidSspArray")
	}
	a.Type = ArrayType(typ)
	a.Permissions = nil
	for !list.Empty() {
		var psid int64
		if !list.ReadASN1Integer(&psid) {
			return malformed("PsidSspArray")
		}
		a.Permissions = append(a.Permissions, psid)
	}
	return nil
}

func (r *GeographicRegion) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Enum(int64(r.Type))
	})
}

func (r *GeographicRegion) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	var typ int
	if !s.ReadASN1(&seq, asn1.SEQUENCE) || !seq.ReadASN1Enum(&typ) || !seq.Empty() {
		return malformed("GeographicRegion")
	}
	r.Type = RegionType(typ)
	return nil
}

func (d *EnrolCertSpecificData) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addUTF8(b, d.EAID)
		b.AddASN1Int64(d.PermittedSubjectTypes)
		d.Permissions.MarshalDER(b)
		d.Region.MarshalDER(b)
	})
}

func (d *EnrolCertSpecificData) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, asn1.SEQUENCE) ||
		!readUTF8(&seq, &d.EAID) ||
		!seq.ReadASN1Integer(&d.PermittedSubjectTypes) {
		return malformed("EnrolCertSpecificData")
	}
	if err := d.Permissions.UnmarshalDER(&seq); err != nil {
		return err
	}
	if err := d.Region.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.Empty() {
		return malformed("EnrolCertSpecificData")
	}
	return nil
}

func (r *ToBeSignedEnrolmentCertificateRequest) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(r.VersionAndType)
		b.AddASN1Uint64(r.RequestTime)
		b.AddASN1Int64(r.SubjectType)
		b.AddASN1BitString([]byte{r.CF})
		r.SpecificData.MarshalDER(b)
		b.AddASN1Uint64(r.Expiration)
		r.VerificationKey.MarshalDER(b)
		r.ResponseEncryptionKey.MarshalDER(b)
	})
}

func (r *ToBeSignedEnrolmentCertificateRequest) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, asn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&r.VersionAndType) ||
		!seq.ReadASN1Integer(&r.RequestTime) ||
		!seq.ReadASN1Integer(&r.SubjectType) ||
		!readFlags(&seq, &r.CF) {
		return malformed("ToBeSignedEnrolmentCertificateRequest")
	}
	if err := r.SpecificData.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.ReadASN1Integer(&r.Expiration) {
		return malformed("ToBeSignedEnrolmentCertificateRequest")
	}
	if err := r.VerificationKey.UnmarshalDER(&seq); err != nil {
		return err
	}
	if err := r.ResponseEncryptionKey.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.Empty() {
		return malformed("ToBeSignedEnrolmentCertificateRequest")
	}
	return nil
}

func (d *AuthCertSpecificData) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1OctetString(d.AdditionalData)
		d.Permissions.MarshalDER(b)
		d.Region.MarshalDER(b)
	})
}

func (d *AuthCertSpecificData) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, asn1.SEQUENCE) || !readBytes(&seq, &d.AdditionalData) {
		return malformed("AuthCertSpecificData")
	}
	if err := d.Permissions.UnmarshalDER(&seq); err != nil {
		return err
	}
	if err := d.Region.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.Empty() {
		return malformed("AuthCertSpecificData")
	}
	return nil
}

func (r *ToBeSignedAuthCertRequest) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		r.marshalFields(b)
	})
}

func (r *ToBeSignedAuthCertRequest) marshalFields(b *cryptobyte.Builder) {
	b.AddASN1Int64(r.VersionAndType)
	b.AddASN1Uint64(r.RequestTime)
	b.AddASN1Int64(r.SubjectType)
	b.AddASN1BitString([]byte{r.CF})
	r.SpecificData.MarshalDER(b)
	r.ResponseEncryptionKey.MarshalDER(b)
}

func (r *ToBeSignedAuthCertRequest) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, asn1.SEQUENCE) {
		return malformed("ToBeSignedAuthCertRequest")
	}
	return r.unmarshalFields(&seq)
}

func (r *ToBeSignedAuthCertRequest) unmarshalFields(seq *cryptobyte.String) error {
	if !seq.ReadASN1Integer(&r.VersionAndType) ||
		!seq.ReadASN1Integer(&r.RequestTime) ||
		!seq.ReadASN1Integer(&r.SubjectType) ||
		!readFlags(seq, &r.CF) {
		return malformed("ToBeSignedAuthCertRequest")
	}
	if err := r.SpecificData.UnmarshalDER(seq); err != nil {
		return err
	}
	if err := r.ResponseEncryptionKey.UnmarshalDER(seq); err != nil {
		return err
	}
	if !seq.Empty() {
		return malformed("ToBeSignedAuthCertRequest")
	}
	return nil
}

// MarshalDER emits the chosen variant as [0] IMPLICIT SEQUENCE.
func (c *AuthCertRequest) MarshalDER(b *cryptobyte.Builder) {
	if c.AnonRequest == nil {
		b.SetError(ErrMissingField)
		return
	}
	b.AddASN1(contextTag(0), func(b *cryptobyte.Builder) {
		c.AnonRequest.marshalFields(b)
	})
}

func (c *AuthCertRequest) UnmarshalDER(s *cryptobyte.String) error {
	var body cryptobyte.String
	if !s.ReadASN1(&body, contextTag(0)) {
		return unknownVariant("AuthCertRequest")
	}
	c.AnonRequest = new(ToBeSignedAuthCertRequest)
	return c.AnonRequest.unmarshalFields(&body)
}

func (sig *Signature) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		sig.R.MarshalDER(b)
		s := sig.S
		if s == nil {
			s = new(big.Int)
		}
		b.AddASN1BigInt(s)
	})
}

func (sig *Signature) UnmarshalDER(s *cryptobyte.String) error {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, asn1.SEQUENCE) {
		return malformed("Signature")
	}
	if err := sig.R.UnmarshalDER(&seq); err != nil {
		return err
	}
	sig.S = new(big.Int)
	if !seq.ReadASN1Integer(sig.S) || !seq.Empty() {
		return malformed("Signature")
	}
	return nil
}

func (c *SignedCertificateChain) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(c.RootCertificate)
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			for _, cert := range c.Chain {
				b.AddBytes(cert)
			}
		})
	})
}

func (c *SignedCertificateChain) UnmarshalDER(s *cryptobyte.String) error {
	var seq, root, list cryptobyte.String
	var tag asn1.Tag
	if !s.ReadASN1(&seq, asn1.SEQUENCE) ||
		!seq.ReadAnyASN1Element(&root, &tag) ||
		!seq.ReadASN1(&list, asn1.SEQUENCE) ||
		!seq.Empty() {
		return malformed("SignedCertificateChain")
	}
	c.RootCertificate = bytes.Clone(root)
	c.Chain = nil
	for !list.Empty() {
		var cert cryptobyte.String
		if !list.ReadAnyASN1Element(&cert, &tag) {
			return malformed("SignedCertificateChain")
		}
		c.Chain = append(c.Chain, bytes.Clone(cert))
	}
	return nil
}

func (f *Failure) marshalVariant(b *cryptobyte.Builder, tag asn1.Tag) {
	b.AddASN1(tag, func(b *cryptobyte.Builder) {
		b.AddASN1Enum(int64(f.Reason))
		addUTF8(b, f.Message)
	})
}

func (f *Failure) unmarshalVariant(body *cryptobyte.String) error {
	if !body.ReadASN1Enum(&f.Reason) || !readUTF8(body, &f.Message) || !body.Empty() {
		return malformed("Failure")
	}
	return nil
}

// EnrolmentResponse ::= CHOICE { successfulEnrolment [0], failedEnrolment [1] }
func (r *EnrolmentResponse) MarshalDER(b *cryptobyte.Builder) {
	switch r.Outcome {
	case VariantSuccessfulEnrolment:
		if r.SignedCertChain == nil {
			b.SetError(ErrMissingField)
			return
		}
		b.AddASN1(contextTag(0), func(b *cryptobyte.Builder) {
			r.SignedCertChain.MarshalDER(b)
		})
	case VariantFailedEnrolment:
		f := r.Failure
		if f == nil {
			f = &Failure{}
		}
		f.marshalVariant(b, contextTag(1))
	default:
		b.SetError(ErrUnknownVariant)
	}
}

func (r *EnrolmentResponse) UnmarshalDER(s *cryptobyte.String) error {
	var body cryptobyte.String
	*r = EnrolmentResponse{}
	switch {
	case s.PeekASN1Tag(contextTag(0)):
		r.Outcome = VariantSuccessfulEnrolment
		r.SignedCertChain = new(SignedCertificateChain)
		if !s.ReadASN1(&body, contextTag(0)) {
			return malformed("EnrolmentResponse")
		}
		if err := r.SignedCertChain.UnmarshalDER(&body); err != nil {
			return err
		}
		if !body.Empty() {
			return malformed("EnrolmentResponse")
		}
		return nil
	case s.PeekASN1Tag(contextTag(1)):
		r.Outcome = VariantFailedEnrolment
		r.Failure = new(Failure)
		if !s.ReadASN1(&body, contextTag(1)) {
			return malformed("EnrolmentResponse")
		}
		return r.Failure.unmarshalVariant(&body)
	default:
		return unknownVariant("EnrolmentResponse")
	}
}

// AuthorizationResponse ::= CHOICE {
//   successfulExplicitAuthorization [0], successfulImplicitAuthorization [1],
//   failedAuthorization [2] }
func (r *AuthorizationResponse) MarshalDER(b *cryptobyte.Builder) {
	switch r.Outcome {
	case VariantSuccessfulExplicitAuthorization, VariantSuccessfulImplicitAuthorization:
		if r.SignedCertChain == nil {
			b.SetError(ErrMissingField)
			return
		}
		tag := contextTag(0)
		if r.Outcome == VariantSuccessfulImplicitAuthorization {
			tag = contextTag(1)
		}
		b.AddASN1(tag, func(b *cryptobyte.Builder) {
			r.SignedCertChain.MarshalDER(b)
			if r.CRL != nil {
				b.AddASN1(tagCRL, func(b *cryptobyte.Builder) {
					b.AddBytes(r.CRL)
				})
			}
		})
	case VariantFailedAuthorization:
		f := r.Failure
		if f == nil {
			f = &Failure{}
		}
		f.marshalVariant(b, contextTag(2))
	default:
		b.SetError(ErrUnknownVariant)
	}
}

func (r *AuthorizationResponse) UnmarshalDER(s *cryptobyte.String) error {
	var body cryptobyte.String
	*r = AuthorizationResponse{}
	for variant, tag := range map[Variant]asn1.Tag{
		VariantSuccessfulExplicitAuthorization: contextTag(0),
		VariantSuccessfulImplicitAuthorization: contextTag(1),
	} {
		if !s.PeekASN1Tag(tag) {
			continue
		}
		if !s.ReadASN1(&body, tag) {
			return malformed("AuthorizationResponse")
		}
		r.Outcome = variant
		r.SignedCertChain = new(SignedCertificateChain)
		if err := r.SignedCertChain.UnmarshalDER(&body); err != nil {
			return err
		}
		var crl cryptobyte.String
		var hasCRL bool
		if !body.ReadOptionalASN1(&crl, &hasCRL, tagCRL) || !body.Empty() {
			return malformed("AuthorizationResponse")
		}
		if hasCRL {
			r.CRL = bytes.Clone(crl)
		}
		return nil
	}
	if s.PeekASN1Tag(contextTag(2)) {
		r.Outcome = VariantFailedAuthorization
		r.Failure = new(Failure)
		if !s.ReadASN1(&body, contextTag(2)) {
			return malformed("AuthorizationResponse")
		}
		return r.Failure.unmarshalVariant(&body)
	}
	return unknownVariant("AuthorizationResponse")
}

func (c *Certificate) MarshalDER(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		c.marshalToBeSigned(b)
		if c.Signature != nil {
			b.AddASN1(tagCertSignature, func(b *cryptobyte.Builder) {
				c.Signature.MarshalDER(b)
			})
		}
	})
}

func (c *Certificate) marshalToBeSigned(b *cryptobyte.Builder) {
	b.AddASN1Int64(c.Version)
	c.Signer.MarshalDER(b)
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(c.SubjectType)
		addUTF8(b, c.SubjectName)
	})
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Uint64(c.ValidFrom)
		b.AddASN1Uint64(c.ValidUntil)
	})
	c.VerificationKey.MarshalDER(b)
}

func (c *Certificate) UnmarshalDER(s *cryptobyte.String) error {
	var seq, subject, validity, sig cryptobyte.String
	var hasSig bool
	if !s.ReadASN1(&seq, asn1.SEQUENCE) || !seq.ReadASN1Integer(&c.Version) {
		return malformed("Certificate")
	}
	if err := c.Signer.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.ReadASN1(&subject, asn1.SEQUENCE) ||
		!subject.ReadASN1Integer(&c.SubjectType) ||
		!readUTF8(&subject, &c.SubjectName) ||
		!subject.Empty() ||
		!seq.ReadASN1(&validity, asn1.SEQUENCE) ||
		!validity.ReadASN1Integer(&c.ValidFrom) ||
		!validity.ReadASN1Integer(&c.ValidUntil) ||
		!validity.Empty() {
		return malformed("Certificate")
	}
	if err := c.VerificationKey.UnmarshalDER(&seq); err != nil {
		return err
	}
	if !seq.ReadOptionalASN1(&sig, &hasSig, tagCertSignature) || !seq.Empty() {
		return malformed("Certificate")
	}
	c.Signature = nil
	if hasSig {
		c.Signature = new(Signature)
		if err := c.Signature.UnmarshalDER(&sig); err != nil {
			return err
		}
		if !sig.Empty() {
			return malformed("Certificate")
		}
	}
	return nil
}

// ToBeSigned returns the encoding the issuer signs: the certificate
// SEQUENCE without its signature field.
func (c *Certificate) ToBeSigned() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		c.marshalToBeSigned(b)
	})
	return b.Bytes()
}

func addUTF8(b *cryptobyte.Builder, v string) {
	b.AddASN1(asn1.UTF8String, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(v))
	})
}

func readUTF8(s *cryptobyte.String, out *string) bool {
	var v cryptobyte.String
	if !s.ReadASN1(&v, asn1.UTF8String) {
		return false
	}
	*out = string(v)
	return true
}

func readBytes(s *cryptobyte.String, out *[]byte) bool {
	var v []byte
	if !s.ReadASN1Bytes(&v, asn1.OCTET_STRING) {
		return false
	}
	*out = nil
	if len(v) > 0 {
		*out = bytes.Clone(v)
	}
	return true
}

func readFlags(s *cryptobyte.String, out *byte) bool {
	var v []byte
	if !s.ReadASN1BitStringAsBytes(&v) || len(v) != 1 {
		return false
	}
	*out = v[0]
	return true
}
