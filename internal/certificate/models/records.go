package models

import (
	"strings"
	"time"
)

// Kind names the certificate kind a record produces.
type Kind string

const (
	KindVaccination Kind = "vaccination"
	KindTest        Kind = "test"
	KindRecovery    Kind = "recovery"
)

// IsValid reports whether k is one of the supported certificate kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindVaccination, KindTest, KindRecovery:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Coding is a code from a terminology together with its display text.
type Coding struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// IsZero reports whether no code is set.
func (c Coding) IsZero() bool {
	return strings.TrimSpace(c.Code) == ""
}

// Record is one medical event selected for encoding. The set of
// implementations is closed: VaccinationEvent, TestResultEvent and
// RecoveryEvent.
type Record interface {
	Kind() Kind
	RecordID() string
	Disease() Coding
	CountryCode() string
	IssuerName() string
	record()
}

// VaccinationEvent is one administered vaccine dose.
type VaccinationEvent struct {
	ID              string
	DiseaseTargeted Coding
	VaccineType     Coding
	Product         Coding
	Manufacturer    Coding
	DoseNumber      int
	SeriesDoses     int
	OccurrenceDate  time.Time
	Country         string
	Issuer          string
}

func (VaccinationEvent) Kind() Kind            { return KindVaccination }
func (e VaccinationEvent) RecordID() string    { return e.ID }
func (e VaccinationEvent) Disease() Coding     { return e.DiseaseTargeted }
func (e VaccinationEvent) CountryCode() string { return e.Country }
func (e VaccinationEvent) IssuerName() string  { return e.Issuer }
func (VaccinationEvent) record()               {}

// TestResultEvent is one negative test result.
type TestResultEvent struct {
	ID              string
	DiseaseTargeted Coding
	TestType        Coding
	// DeviceIdentifier is the rapid antigen test device id; empty for NAAT.
	DeviceIdentifier string
	TestName         string
	TestCentre       string
	SampleCollected  time.Time
	Country          string
	Issuer           string
}

func (TestResultEvent) Kind() Kind            { return KindTest }
func (e TestResultEvent) RecordID() string    { return e.ID }
func (e TestResultEvent) Disease() Coding     { return e.DiseaseTargeted }
func (e TestResultEvent) CountryCode() string { return e.Country }
func (e TestResultEvent) IssuerName() string  { return e.Issuer }
func (TestResultEvent) record()               {}

// RecoveryEvent is a recovery derived from a first positive test.
type RecoveryEvent struct {
	ID                  string
	DiseaseTargeted     Coding
	FirstPositiveResult time.Time
	Country             string
	Issuer              string
}

func (RecoveryEvent) Kind() Kind            { return KindRecovery }
func (e RecoveryEvent) RecordID() string    { return e.ID }
func (e RecoveryEvent) Disease() Coding     { return e.DiseaseTargeted }
func (e RecoveryEvent) CountryCode() string { return e.Country }
func (e RecoveryEvent) IssuerName() string  { return e.Issuer }
func (RecoveryEvent) record()               {}

// DiagnosticResult is the upstream shape shared by test and recovery
// evidence before it is split into one of the two record kinds.
type DiagnosticResult struct {
	ID               string
	DiseaseTargeted  Coding
	TestType         Coding
	DeviceIdentifier string
	TestName         string
	TestCentre       string
	EffectiveAt      time.Time
	Country          string
	Issuer           string
}

// Classify returns a TestResultEvent when the result carries a test type
// code, and a RecoveryEvent otherwise.
func (d DiagnosticResult) Classify() Record {
	if !d.TestType.IsZero() {
		return TestResultEvent{
			ID:               d.ID,
			DiseaseTargeted:  d.DiseaseTargeted,
			TestType:         d.TestType,
			DeviceIdentifier: d.DeviceIdentifier,
			TestName:         d.TestName,
			TestCentre:       d.TestCentre,
			SampleCollected:  d.EffectiveAt,
			Country:          d.Country,
			Issuer:           d.Issuer,
		}
	}
	return RecoveryEvent{
		ID:                  d.ID,
		DiseaseTargeted:     d.DiseaseTargeted,
		FirstPositiveResult: d.EffectiveAt,
		Country:             d.Country,
		Issuer:              d.Issuer,
	}
}
