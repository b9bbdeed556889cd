// Package condense maps one medical record onto the compact CWT claim set
// embedded in a health-certificate barcode.
package condense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hcert/internal/certificate/models"
	"hcert/internal/refdata"
	"hcert/internal/transliterate"
	dErrors "hcert/pkg/domain-errors"
	"hcert/pkg/requestcontext"
)

const (
	DefaultSchemaVersion = "1.3.0"

	// TestResultNotDetected is the only result a test certificate carries.
	TestResultNotDetected = "260415000"

	// RapidAntigenTest is the test-type code that requires a device id.
	RapidAntigenTest = "LP217198-3"
)

// Config holds issuer-wide defaults applied while condensing.
type Config struct {
	DefaultCountry string
	DefaultIssuer  string
	SchemaVersion  string
	// Location is the time zone vaccination and recovery dates are
	// expressed in. Defaults to UTC.
	Location *time.Location
}

// Input is everything needed to condense one record.
type Input struct {
	Record     models.Record
	Location   *models.Location
	Subject    models.Subject
	Issuing    models.IssuingContext
	UVCI       string
	ValidUntil time.Time
}

// Condenser builds payloads. It holds no per-call state and is safe for
// concurrent use.
type Condenser struct {
	refs  refdata.Provider
	names *transliterate.Transliterator
	cfg   Config
}

func New(refs refdata.Provider, names *transliterate.Transliterator, cfg Config) *Condenser {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = DefaultSchemaVersion
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if names == nil {
		names = transliterate.New()
	}
	return &Condenser{refs: refs, names: names, cfg: cfg}
}

// Condense produces the payload for in.Record. It either returns a complete
// payload or an error, never a partial result. Unmapped codes yield
// CodeMapping; anything else is wrapped as CodeInternal.
func (c *Condenser) Condense(ctx context.Context, in Input) (Payload, error) {
	if in.Record == nil {
		return Payload{}, dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	if strings.TrimSpace(in.UVCI) == "" {
		return Payload{}, dErrors.New(dErrors.CodeInvalidInput, "certificate identifier is required")
	}

	now := requestcontext.Now(ctx)
	body := Body{
		Version:     c.cfg.SchemaVersion,
		DateOfBirth: in.Subject.DateOfBirth.Format(time.DateOnly),
		Name:        c.name(in.Subject),
	}

	var err error
	switch rec := in.Record.(type) {
	case models.VaccinationEvent:
		var v Vaccination
		v, err = c.vaccination(ctx, rec, in)
		body.Vaccinations = []Vaccination{v}
	case models.TestResultEvent:
		var t Test
		t, err = c.test(ctx, rec, in)
		body.Tests = []Test{t}
	case models.RecoveryEvent:
		var r Recovery
		r, err = c.recovery(ctx, rec, in, now)
		body.Recoveries = []Recovery{r}
	default:
		err = dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported record type %T", in.Record))
	}
	if err != nil {
		return Payload{}, c.wrap(err, in.Record)
	}

	claims := Claims{
		Issuer:   firstNonEmpty(in.Issuing.Country, c.cfg.DefaultCountry),
		IssuedAt: now.Unix(),
		HCert:    HCert{Body: body},
	}
	if !in.ValidUntil.IsZero() {
		claims.ExpiresAt = in.ValidUntil.Unix()
	}
	return Payload{claims: claims}, nil
}

func (c *Condenser) name(s models.Subject) Name {
	var n transliterate.Name
	if s.HasStructuredName() {
		n = c.names.Transliterate(s.FamilyName, s.GivenName)
	} else {
		n = c.names.TransliterateFull(s.FullName)
	}
	return Name{
		FamilyName:         n.FamilyName,
		FamilyNameStandard: n.FamilyNameTranslit,
		GivenName:          n.GivenName,
		GivenNameStandard:  n.GivenNameTranslit,
	}
}

func (c *Condenser) vaccination(ctx context.Context, rec models.VaccinationEvent, in Input) (Vaccination, error) {
	m := mapper{ctx: ctx, refs: c.refs}
	v := Vaccination{
		Target:        m.disease(rec),
		VaccineType:   m.lookup(refdata.VaccineProphylaxis, "vaccine type", rec.VaccineType.Code),
		Product:       m.lookup(refdata.VaccineMedicinalProduct, "vaccine product", rec.Product.Code),
		Manufacturer:  m.lookup(refdata.VaccineManufacturer, "vaccine manufacturer", rec.Manufacturer.Code),
		DoseNumber:    rec.DoseNumber,
		SeriesDoses:   rec.SeriesDoses,
		Date:          rec.OccurrenceDate.In(c.cfg.Location).Format(time.DateOnly),
		Country:       c.country(rec, in),
		Issuer:        c.issuer(rec, in),
		CertificateID: in.UVCI,
	}
	return v, m.err
}

func (c *Condenser) test(ctx context.Context, rec models.TestResultEvent, in Input) (Test, error) {
	m := mapper{ctx: ctx, refs: c.refs}
	t := Test{
		Target:          m.disease(rec),
		TestType:        m.lookup(refdata.TestType, "test type", rec.TestType.Code),
		TestName:        strings.TrimSpace(rec.TestName),
		SampleCollected: rec.SampleCollected.UTC().Format(time.RFC3339),
		Result:          TestResultNotDetected,
		TestCentre:      strings.TrimSpace(rec.TestCentre),
		Country:         c.country(rec, in),
		Issuer:          c.issuer(rec, in),
		CertificateID:   in.UVCI,
	}
	if device := strings.TrimSpace(rec.DeviceIdentifier); device != "" {
		t.Device = m.lookup(refdata.TestManufacturer, "test device", device)
	}
	if t.TestCentre == "" && in.Location != nil {
		t.TestCentre = in.Location.Name
	}
	if m.err == nil && t.TestCentre == "" {
		m.err = dErrors.New(dErrors.CodeValidation, "test centre is required")
	}
	return t, m.err
}

func (c *Condenser) recovery(ctx context.Context, rec models.RecoveryEvent, in Input, now time.Time) (Recovery, error) {
	m := mapper{ctx: ctx, refs: c.refs}
	r := Recovery{
		Target:        m.disease(rec),
		FirstPositive: rec.FirstPositiveResult.In(c.cfg.Location).Format(time.DateOnly),
		Country:       c.country(rec, in),
		Issuer:        firstNonEmpty(rec.IssuerName(), c.cfg.DefaultIssuer),
		ValidFrom:     now.In(c.cfg.Location).Format(time.DateOnly),
		CertificateID: in.UVCI,
	}
	if !in.ValidUntil.IsZero() {
		r.ValidUntil = in.ValidUntil.In(c.cfg.Location).Format(time.DateOnly)
	}
	return r, m.err
}

// country resolves record country, then location country, then the
// configured default.
func (c *Condenser) country(rec models.Record, in Input) string {
	var locationCountry string
	if in.Location != nil {
		locationCountry = in.Location.Country
	}
	return strings.ToUpper(firstNonEmpty(rec.CountryCode(), locationCountry, c.cfg.DefaultCountry))
}

func (c *Condenser) issuer(rec models.Record, in Input) string {
	return firstNonEmpty(rec.IssuerName(), in.Issuing.Institution, c.cfg.DefaultIssuer)
}

func (c *Condenser) wrap(err error, rec models.Record) error {
	msg := fmt.Sprintf("condense %s record %q", rec.Kind(), rec.RecordID())
	var de *dErrors.Error
	if errors.As(err, &de) {
		return dErrors.Wrap(err, de.Code, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// mapper accumulates the first lookup failure so a record's fields can be
// mapped in one expression.
type mapper struct {
	ctx  context.Context
	refs refdata.Provider
	err  error
}

func (m *mapper) disease(rec models.Record) string {
	return m.lookup(refdata.DiseaseAgentTargeted, "disease", rec.Disease().Code)
}

func (m *mapper) lookup(set refdata.ValueSet, field, code string) string {
	if m.err != nil {
		return ""
	}
	code = strings.TrimSpace(code)
	if code == "" {
		m.err = dErrors.New(dErrors.CodeMapping, field+" code is required")
		return ""
	}
	mapped, err := m.refs.Lookup(m.ctx, set, code)
	switch {
	case errors.Is(err, refdata.ErrUnmapped):
		m.err = dErrors.Wrap(err, dErrors.CodeMapping, fmt.Sprintf("unmapped %s code %q", field, code))
	case err != nil:
		m.err = dErrors.Wrap(err, dErrors.CodeInternal, "lookup "+field)
	}
	return mapped
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
