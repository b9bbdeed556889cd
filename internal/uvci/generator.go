package uvci

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	randomLength   = 8

	DefaultPrefix  = "URN:UVCI"
	DefaultVersion = "01"
)

// Candidate is a freshly generated identifier that has not yet been
// recorded in the ledger.
type Candidate struct {
	Value       string
	GeneratedAt time.Time
}

// Generator builds UVCI candidates of the form
// PREFIX:VERSION:ISSUER:<epoch-ms><8 random chars>#<check>.
type Generator struct {
	prefix  string
	version string
	now     func() time.Time
	entropy io.Reader
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithEntropy overrides the random source. It must be cryptographically
// strong outside tests.
func WithEntropy(r io.Reader) GeneratorOption {
	return func(g *Generator) {
		g.entropy = r
	}
}

// NewGenerator creates a generator for the given prefix and version.
func NewGenerator(prefix, version string, opts ...GeneratorOption) (*Generator, error) {
	prefix = strings.TrimSpace(prefix)
	version = strings.TrimSpace(version)
	if prefix == "" {
		return nil, errors.New("uvci prefix is required")
	}
	if version == "" {
		return nil, errors.New("uvci version is required")
	}
	g := &Generator{
		prefix:  prefix,
		version: version,
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate returns a new candidate for the issuer country/region code.
func (g *Generator) Generate(issuer string) (Candidate, error) {
	issuer = strings.ToUpper(strings.TrimSpace(issuer))
	if issuer == "" {
		return Candidate{}, errors.New("uvci issuer is required")
	}

	suffix, err := g.randomString(randomLength)
	if err != nil {
		return Candidate{}, fmt.Errorf("generate uvci random part: %w", err)
	}

	now := g.now()
	var b strings.Builder
	b.WriteString(g.prefix)
	b.WriteByte(':')
	b.WriteString(g.version)
	b.WriteByte(':')
	b.WriteString(issuer)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteString(suffix)

	body := b.String()
	return Candidate{
		Value:       body + "#" + string(Checksum(body)),
		GeneratedAt: now,
	}, nil
}

// randomString draws n characters uniformly from randomAlphabet using
// rejection sampling over single bytes.
func (g *Generator) randomString(n int) (string, error) {
	const limit = 256 - 256%len(randomAlphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := io.ReadFull(g.entropy, buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= limit {
				continue
			}
			out = append(out, randomAlphabet[int(c)%len(randomAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
