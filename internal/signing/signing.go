// Package signing provides the signing collaborator used by the envelope
// signer: key selection by tag and raw ES256 signatures.
package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Service signs data with keys addressed by base64 key id.
type Service interface {
	// Sign returns the raw r||s signature over SHA-256(data).
	Sign(ctx context.Context, keyID string, data []byte) ([]byte, error)
	// RandomKey returns the id of any loaded key.
	RandomKey(ctx context.Context) (string, error)
	// KeyForTag returns the id of the key registered under tag.
	KeyForTag(ctx context.Context, tag string) (string, error)
}

var (
	ErrUnknownKey = errors.New("unknown signing key")
	ErrUnknownTag = errors.New("no signing key for tag")
	ErrNoKeys     = errors.New("no signing keys loaded")
)

// SignatureSize is the length of a raw P-256 signature.
const SignatureSize = 64

// Keyring is an in-process Service backed by ECDSA P-256 keys.
type Keyring struct {
	mu     sync.RWMutex
	keys   map[string]*ecdsa.PrivateKey
	tags   map[string]string
	ids    []string
	logger *slog.Logger
}

type Option func(*Keyring)

func WithLogger(logger *slog.Logger) Option {
	return func(k *Keyring) {
		k.logger = logger
	}
}

func NewKeyring(opts ...Option) *Keyring {
	k := &Keyring{
		keys:   make(map[string]*ecdsa.PrivateKey),
		tags:   make(map[string]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// KeyID derives the key id for pub: base64 of the first 8 bytes of the
// SHA-256 of its PKIX encoding.
func KeyID(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return base64.StdEncoding.EncodeToString(sum[:8]), nil
}

// Add registers key under tag and returns its key id. An empty tag makes the
// key reachable only through RandomKey.
func (k *Keyring) Add(tag string, key *ecdsa.PrivateKey) (string, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return "", errors.New("signing key must be ECDSA P-256")
	}
	kid, err := KeyID(&key.PublicKey)
	if err != nil {
		return "", err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[kid]; !ok {
		k.ids = append(k.ids, kid)
	}
	k.keys[kid] = key
	if tag != "" {
		k.tags[tag] = kid
	}
	return kid, nil
}

// Generate creates a fresh key under tag. Intended for development and tests.
func (k *Keyring) Generate(tag string) (string, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return k.Add(tag, key)
}

// LoadDir loads <tag>.pem for each tag from dir. Files may hold SEC 1
// ("EC PRIVATE KEY") or PKCS #8 ("PRIVATE KEY") blocks.
func (k *Keyring) LoadDir(dir string, tags []string) error {
	for _, tag := range tags {
		path := filepath.Join(dir, tag+".pem")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read key %s: %w", tag, err)
		}
		key, err := ParsePrivateKey(data)
		if err != nil {
			return fmt.Errorf("parse key %s: %w", tag, err)
		}
		kid, err := k.Add(tag, key)
		if err != nil {
			return fmt.Errorf("add key %s: %w", tag, err)
		}
		k.logger.Info("signing key loaded", "tag", tag, "kid", kid)
	}
	return nil
}

// ParsePrivateKey decodes the first PEM block in data as an ECDSA key.
func ParsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported key type %T", parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// PublicKey returns the public half of kid.
func (k *Keyring) PublicKey(kid string) (*ecdsa.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}
	return &key.PublicKey, nil
}

// Tags lists registered tags in sorted order.
func (k *Keyring) Tags() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	tags := make([]string, 0, len(k.tags))
	for tag := range k.tags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func (k *Keyring) Sign(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.RLock()
	key, ok := k.keys[keyID]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}

	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	sig := make([]byte, SignatureSize)
	r.FillBytes(sig[:SignatureSize/2])
	s.FillBytes(sig[SignatureSize/2:])
	return sig, nil
}

func (k *Keyring) RandomKey(_ context.Context) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.ids) == 0 {
		return "", ErrNoKeys
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(k.ids))))
	if err != nil {
		return "", fmt.Errorf("pick key: %w", err)
	}
	return k.ids[n.Int64()], nil
}

func (k *Keyring) KeyForTag(_ context.Context, tag string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kid, ok := k.tags[tag]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return kid, nil
}

// Verify checks a raw r||s signature over data against pub.
func Verify(pub *ecdsa.PublicKey, data, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	digest := sha256.Sum256(data)
	r := new(big.Int).SetBytes(sig[:SignatureSize/2])
	s := new(big.Int).SetBytes(sig[SignatureSize/2:])
	return ecdsa.Verify(pub, digest[:], r, s)
}
