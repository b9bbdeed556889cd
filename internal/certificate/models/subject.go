package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Subject is the person the certificate is issued to.
type Subject struct {
	FullName    string    `validate:"required_without=FamilyName,max=256"`
	GivenName   string    `validate:"max=128"`
	FamilyName  string    `validate:"required_without=FullName,max=128"`
	DateOfBirth time.Time `validate:"required,notfuture"`
}

// HasStructuredName reports whether a family name was supplied separately.
func (s Subject) HasStructuredName() bool {
	return strings.TrimSpace(s.FamilyName) != ""
}

// Hash returns a stable, non-reversible identifier for the subject used as
// the ledger's user hash.
func (s Subject) Hash() string {
	name := s.FullName
	if s.HasStructuredName() {
		name = s.GivenName + " " + s.FamilyName
	}
	sum := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(name)) + "|" + s.DateOfBirth.Format(time.DateOnly)))
	return hex.EncodeToString(sum[:])
}

// Location is the organisation or site a record was produced at.
type Location struct {
	Name    string `validate:"required,max=256"`
	Country string `validate:"omitempty,iso3166_1_alpha2"`
}

// IssuingContext is the per-call issuing metadata.
type IssuingContext struct {
	// Country is the issuing country/region code placed in the CWT iss claim.
	Country string
	// Institution is the issuing authority name used as default issuer.
	Institution string
	// KeyCountry selects the signing key; empty requests a random key.
	KeyCountry string
	ValidFrom  time.Time
	ValidUntil time.Time
}
