package hc1

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcert/pkg/testutil"
)

type recordingSigner struct {
	country string
	out     []byte
	err     error
}

func (r *recordingSigner) Sign(_ context.Context, _ cbor.Marshaler, keyCountry string) ([]byte, error) {
	r.country = keyCountry
	return r.out, r.err
}

type staticPayload []byte

func (p staticPayload) MarshalCBOR() ([]byte, error) { return p, nil }

func TestKeyCountry(t *testing.T) {
	assert.Equal(t, "ENG-WAL", KeyCountry("GB"))
	assert.Equal(t, "ENG-WAL", KeyCountry(" gb "))
	assert.Equal(t, "SE", KeyCountry("SE"))
	assert.Equal(t, "", KeyCountry(""))
}

func TestEncode(t *testing.T) {
	ctx := context.Background()

	testutil.Given(t, "a signer returning a fixed envelope", func(t *testing.T) {
		envelope := bytes.Repeat([]byte{0xD2, 0x84, 0x43, 0xA1}, 40)
		signer := &recordingSigner{out: envelope}
		var barcode string

		testutil.When(t, "a GB payload is encoded", func(t *testing.T) {
			var err error
			barcode, err = NewEncoder(signer).Encode(ctx, staticPayload{0xA0}, "GB")
			require.NoError(t, err)
		})

		testutil.Then(t, "the England and Wales key is requested", func(t *testing.T) {
			assert.Equal(t, "ENG-WAL", signer.country)
		})

		testutil.And(t, "the barcode carries the prefix and decodes to the envelope", func(t *testing.T) {
			assert.True(t, strings.HasPrefix(barcode, Prefix))
			got, err := Decode(barcode)
			require.NoError(t, err)
			assert.Equal(t, envelope, got)
		})
	})

	t.Run("empty country passes through", func(t *testing.T) {
		signer := &recordingSigner{out: []byte{0x01}}
		_, err := NewEncoder(signer).Encode(ctx, staticPayload{0xA0}, "")
		require.NoError(t, err)
		assert.Equal(t, "", signer.country)
	})

	t.Run("signer error", func(t *testing.T) {
		signer := &recordingSigner{err: errors.New("no key")}
		_, err := NewEncoder(signer).Encode(ctx, staticPayload{0xA0}, "SE")
		assert.ErrorContains(t, err, "no key")
	})
}

func TestCompressUsesZlibFraming(t *testing.T) {
	out, err := Compress([]byte("hello"))
	require.NoError(t, err)
	// CMF 0x78 = deflate, 32K window.
	assert.Equal(t, byte(0x78), out[0])
	assert.Zero(t, (uint16(out[0])<<8|uint16(out[1]))%31, "FCHECK")
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("HC2:ABC")
	assert.ErrorIs(t, err, ErrMissingPrefix)

	_, err = Decode(Prefix + "!!!")
	assert.Error(t, err)

	_, err = Decode(Prefix + "00")
	assert.Error(t, err, "valid base45 but not zlib")
}

func TestRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("decompress inverts compress", prop.ForAll(
		func(data []byte) bool {
			compressed, err := Compress(data)
			if err != nil {
				return false
			}
			out, err := Decompress(compressed)
			return err == nil && bytes.Equal(out, data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("decode inverts wrap", prop.ForAll(
		func(data []byte) bool {
			barcode, err := Wrap(data)
			if err != nil {
				return false
			}
			out, err := Decode(barcode)
			return err == nil && bytes.Equal(out, data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
