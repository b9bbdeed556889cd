// Package hc1 turns signed envelopes into HC1 barcode text and back.
package hc1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zlib"

	"hcert/pkg/base45"
)

// Prefix marks an HC1 barcode payload.
const Prefix = "HC1:"

var ErrMissingPrefix = errors.New("barcode does not start with " + Prefix)

// EnvelopeSigner produces a signed envelope for payload under the key
// selected by keyCountry.
type EnvelopeSigner interface {
	Sign(ctx context.Context, payload cbor.Marshaler, keyCountry string) ([]byte, error)
}

// Encoder signs, compresses and text-encodes payloads.
type Encoder struct {
	signer EnvelopeSigner
}

func NewEncoder(signer EnvelopeSigner) *Encoder {
	return &Encoder{signer: signer}
}

// KeyCountry maps an issuing country to the suffix of its signing-key tag.
// GB certificates are signed with the England and Wales key.
func KeyCountry(country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "GB" {
		return "ENG-WAL"
	}
	return country
}

// Encode returns the HC1 barcode string for payload. An empty country signs
// with a random key.
func (e *Encoder) Encode(ctx context.Context, payload cbor.Marshaler, country string) (string, error) {
	envelope, err := e.signer.Sign(ctx, payload, KeyCountry(country))
	if err != nil {
		return "", err
	}
	return Wrap(envelope)
}

// Wrap compresses and Base45-encodes envelope bytes and adds the prefix.
func Wrap(envelope []byte) (string, error) {
	compressed, err := Compress(envelope)
	if err != nil {
		return "", err
	}
	return Prefix + base45.Encode(compressed), nil
}

// Decode reverses Wrap, returning the envelope bytes.
func Decode(barcode string) ([]byte, error) {
	text, ok := strings.CutPrefix(barcode, Prefix)
	if !ok {
		return nil, ErrMissingPrefix
	}
	compressed, err := base45.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("base45: %w", err)
	}
	return Decompress(compressed)
}

// Compress deflates data with zlib framing at the default level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates zlib-framed data.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	return out, nil
}
