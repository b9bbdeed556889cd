// Package cose builds and parses single-signer COSE envelopes (tag 18)
// carrying CWT payloads.
package cose

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"hcert/internal/signing"
)

const (
	// TagSign1 is the CBOR tag of a COSE_Sign1 structure.
	TagSign1 = 18
	// AlgES256 is ECDSA with SHA-256.
	AlgES256 = -7

	headerAlg   = 1
	headerKeyID = 4

	sigContext = "Signature1"
	tagPrefix  = "DSC-"
)

var ErrInvalidEnvelope = errors.New("invalid COSE_Sign1 envelope")

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// ProtectedHeader is the decoded protected header bucket.
type ProtectedHeader struct {
	Alg   int64  `cbor:"1,keyasint"`
	KeyID []byte `cbor:"4,keyasint"`
}

// Envelope is a decoded COSE_Sign1.
type Envelope struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// Header decodes the protected header bytes.
func (e Envelope) Header() (ProtectedHeader, error) {
	var h ProtectedHeader
	if err := cbor.Unmarshal(e.Protected, &h); err != nil {
		return ProtectedHeader{}, fmt.Errorf("decode protected header: %w", err)
	}
	return h, nil
}

// Signer wraps payloads in signed envelopes. It never inspects the payload.
type Signer struct {
	keys signing.Service
}

func NewSigner(keys signing.Service) *Signer {
	return &Signer{keys: keys}
}

// KeyTag returns the signing-key tag for country, or "" when a random key
// should be used.
func KeyTag(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return ""
	}
	return tagPrefix + country
}

// Sign serializes payload, signs it under the key for country and returns
// the tagged envelope bytes.
func (s *Signer) Sign(ctx context.Context, payload cbor.Marshaler, country string) ([]byte, error) {
	payloadBytes, err := payload.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	kid, err := s.resolveKey(ctx, country)
	if err != nil {
		return nil, err
	}
	kidBytes, err := base64.StdEncoding.DecodeString(kid)
	if err != nil {
		return nil, fmt.Errorf("decode key id %q: %w", kid, err)
	}

	protected, err := encMode.Marshal(map[int]any{
		headerAlg:   AlgES256,
		headerKeyID: kidBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode protected header: %w", err)
	}

	toSign, err := sigStructure(protected, payloadBytes)
	if err != nil {
		return nil, err
	}
	sig, err := s.keys.Sign(ctx, kid, toSign)
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}

	envelope, err := encMode.Marshal(cbor.Tag{
		Number:  TagSign1,
		Content: []any{protected, map[int]any{}, payloadBytes, sig},
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return envelope, nil
}

func (s *Signer) resolveKey(ctx context.Context, country string) (string, error) {
	tag := KeyTag(country)
	if tag == "" {
		kid, err := s.keys.RandomKey(ctx)
		if err != nil {
			return "", fmt.Errorf("select random key: %w", err)
		}
		return kid, nil
	}
	kid, err := s.keys.KeyForTag(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("select key %s: %w", tag, err)
	}
	return kid, nil
}

func sigStructure(protected, payload []byte) ([]byte, error) {
	b, err := encMode.Marshal([]any{sigContext, protected, []byte{}, payload})
	if err != nil {
		return nil, fmt.Errorf("encode signature input: %w", err)
	}
	return b, nil
}

// Decode parses tagged envelope bytes.
func Decode(data []byte) (Envelope, error) {
	var raw cbor.RawTag
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if raw.Number != TagSign1 {
		return Envelope{}, fmt.Errorf("%w: tag %d", ErrInvalidEnvelope, raw.Number)
	}
	var env Envelope
	if err := cbor.Unmarshal(raw.Content, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return env, nil
}

// Verify checks the envelope signature against pub.
func Verify(env Envelope, pub *ecdsa.PublicKey) error {
	h, err := env.Header()
	if err != nil {
		return err
	}
	if h.Alg != AlgES256 {
		return fmt.Errorf("%w: unsupported alg %d", ErrInvalidEnvelope, h.Alg)
	}
	toSign, err := sigStructure(env.Protected, env.Payload)
	if err != nil {
		return err
	}
	if !signing.Verify(pub, toSign, env.Signature) {
		return errors.New("signature verification failed")
	}
	return nil
}
