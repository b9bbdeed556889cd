// Package base45 implements the Base45 text encoding of RFC 9285, used to
// carry binary health-certificate payloads in QR alphanumeric mode.
package base45

import (
	"errors"
	"fmt"
	"strings"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

var (
	// ErrInvalidLength is returned when the input length is 1 mod 3.
	ErrInvalidLength = errors.New("base45: invalid input length")
	// ErrInvalidCharacter is returned for characters outside the alphabet.
	ErrInvalidCharacter = errors.New("base45: invalid character")
	// ErrOverflow is returned when a triplet decodes above 0xFFFF (or a
	// trailing pair above 0xFF).
	ErrOverflow = errors.New("base45: value overflow")
)

var decodeTable = func() [256]int {
	var t [256]int
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = i
	}
	return t
}()

// EncodedLen returns the length of the encoding of n source bytes.
func EncodedLen(n int) int {
	return n/2*3 + n%2*2
}

// Encode returns the Base45 encoding of src.
func Encode(src []byte) string {
	var b strings.Builder
	b.Grow(EncodedLen(len(src)))

	for i := 0; i+1 < len(src); i += 2 {
		n := int(src[i])<<8 | int(src[i+1])
		b.WriteByte(alphabet[n%45])
		n /= 45
		b.WriteByte(alphabet[n%45])
		b.WriteByte(alphabet[n/45])
	}
	if len(src)%2 == 1 {
		n := int(src[len(src)-1])
		b.WriteByte(alphabet[n%45])
		b.WriteByte(alphabet[n/45])
	}
	return b.String()
}

// Decode returns the bytes represented by the Base45 string s.
func Decode(s string) ([]byte, error) {
	if len(s)%3 == 1 {
		return nil, ErrInvalidLength
	}
	out := make([]byte, 0, len(s)/3*2+len(s)%3/2)

	for i := 0; i < len(s); i += 3 {
		chunk := s[i:min(i+3, len(s))]
		n := 0
		factor := 1
		for j := 0; j < len(chunk); j++ {
			v := decodeTable[chunk[j]]
			if v < 0 {
				return nil, fmt.Errorf("%w %q at offset %d", ErrInvalidCharacter, chunk[j], i+j)
			}
			n += v * factor
			factor *= 45
		}
		if len(chunk) == 3 {
			if n > 0xFFFF {
				return nil, ErrOverflow
			}
			out = append(out, byte(n>>8), byte(n))
			continue
		}
		if n > 0xFF {
			return nil, ErrOverflow
		}
		out = append(out, byte(n))
	}
	return out, nil
}
