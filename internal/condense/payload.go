package condense

import (
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// Claims is the CWT claim set carried as the Sign1 payload.
type Claims struct {
	Issuer    string `cbor:"1,keyasint"`
	IssuedAt  int64  `cbor:"6,keyasint"`
	ExpiresAt int64  `cbor:"4,keyasint,omitempty"`
	HCert     HCert  `cbor:"-260,keyasint"`
}

// HCert wraps the certificate body under its claim slot.
type HCert struct {
	Body Body `cbor:"1,keyasint"`
}

// Body is the health-certificate schema body. Exactly one of Vaccinations,
// Tests or Recoveries is populated, with one entry.
type Body struct {
	Version      string        `cbor:"ver"`
	DateOfBirth  string        `cbor:"dob"`
	Name         Name          `cbor:"nam"`
	Vaccinations []Vaccination `cbor:"v,omitempty"`
	Tests        []Test        `cbor:"t,omitempty"`
	Recoveries   []Recovery    `cbor:"r,omitempty"`
}

type Name struct {
	FamilyName         string `cbor:"fn,omitempty"`
	FamilyNameStandard string `cbor:"fnt"`
	GivenName          string `cbor:"gn,omitempty"`
	GivenNameStandard  string `cbor:"gnt,omitempty"`
}

type Vaccination struct {
	Target        string `cbor:"tg"`
	VaccineType   string `cbor:"vp"`
	Product       string `cbor:"mp"`
	Manufacturer  string `cbor:"ma"`
	DoseNumber    int    `cbor:"dn"`
	SeriesDoses   int    `cbor:"sd"`
	Date          string `cbor:"dt"`
	Country       string `cbor:"co"`
	Issuer        string `cbor:"is"`
	CertificateID string `cbor:"ci"`
}

type Test struct {
	Target          string `cbor:"tg"`
	TestType        string `cbor:"tt"`
	TestName        string `cbor:"nm,omitempty"`
	Device          string `cbor:"ma,omitempty"`
	SampleCollected string `cbor:"sc"`
	Result          string `cbor:"tr"`
	TestCentre      string `cbor:"tc"`
	Country         string `cbor:"co"`
	Issuer          string `cbor:"is"`
	CertificateID   string `cbor:"ci"`
}

type Recovery struct {
	Target        string `cbor:"tg"`
	FirstPositive string `cbor:"fr"`
	Country       string `cbor:"co"`
	Issuer        string `cbor:"is"`
	ValidFrom     string `cbor:"df"`
	ValidUntil    string `cbor:"du,omitempty"`
	CertificateID string `cbor:"ci"`
}

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// Payload is a condensed, immutable claim set ready for signing.
type Payload struct {
	claims Claims
}

// Claims returns a copy of the claim set.
func (p Payload) Claims() Claims {
	c := p.claims
	c.HCert.Body.Vaccinations = slices.Clone(c.HCert.Body.Vaccinations)
	c.HCert.Body.Tests = slices.Clone(c.HCert.Body.Tests)
	c.HCert.Body.Recoveries = slices.Clone(c.HCert.Body.Recoveries)
	return c
}

// MarshalCBOR encodes the claim set with core deterministic encoding.
func (p Payload) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(p.claims)
}

// DecodeClaims parses payload bytes produced by MarshalCBOR.
func DecodeClaims(data []byte) (Claims, error) {
	var c Claims
	if err := cbor.Unmarshal(data, &c); err != nil {
		return Claims{}, err
	}
	return c, nil
}
