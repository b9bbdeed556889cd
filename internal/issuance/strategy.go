package issuance

import (
	"fmt"
	"time"

	"hcert/internal/certificate/models"
	"hcert/internal/condense"
)

// strategy holds the kind-specific rules of one certificate kind.
type strategy struct {
	kind models.Kind
	// validate checks one record; any failure rejects the whole bundle.
	validate func(models.Record) error
	// latest returns the record date that drives validity, zero if none.
	latest func(models.Record) time.Time
	// validity is added to the latest date; zero means no derived expiry.
	validity time.Duration
	// pairsLocation reports whether a validated location is passed on to the
	// condenser. Every supplied location is validated regardless.
	pairsLocation bool
}

func (s *Service) strategyFor(kind models.Kind) (strategy, error) {
	switch kind {
	case models.KindVaccination:
		return strategy{
			kind:          kind,
			validate:      validateVaccination,
			latest:        func(models.Record) time.Time { return time.Time{} },
			pairsLocation: true,
		}, nil
	case models.KindTest:
		return strategy{
			kind:     kind,
			validate: validateTest,
			latest: func(r models.Record) time.Time {
				return r.(models.TestResultEvent).SampleCollected
			},
			validity:      s.cfg.TestValidity,
			pairsLocation: true,
		}, nil
	case models.KindRecovery:
		return strategy{
			kind:     kind,
			validate: validateRecovery,
			latest: func(r models.Record) time.Time {
				return r.(models.RecoveryEvent).FirstPositiveResult
			},
			validity: s.cfg.RecoveryValidity,
		}, nil
	default:
		return strategy{}, fmt.Errorf("unsupported certificate kind %q", kind)
	}
}

// validityEnd derives the expiry shared by every barcode of the bundle. A
// requested end caps the derived one.
func (st strategy) validityEnd(entries []Entry, issuing models.IssuingContext) time.Time {
	var latest time.Time
	for _, e := range entries {
		if t := st.latest(e.Record); t.After(latest) {
			latest = t
		}
	}

	var end time.Time
	if st.validity > 0 && !latest.IsZero() {
		end = latest.Add(st.validity)
	}
	requested := issuing.ValidUntil
	switch {
	case end.IsZero():
		return requested
	case !requested.IsZero() && requested.Before(end):
		return requested
	default:
		return end
	}
}

func validateVaccination(r models.Record) error {
	v, ok := r.(models.VaccinationEvent)
	if !ok {
		return fmt.Errorf("record %q is a %s, not a vaccination", r.RecordID(), r.Kind())
	}
	if v.DoseNumber < 1 || v.SeriesDoses < 1 {
		return fmt.Errorf("record %q: dose number and series doses must be positive", v.ID)
	}
	if v.OccurrenceDate.IsZero() {
		return fmt.Errorf("record %q: vaccination date is required", v.ID)
	}
	return nil
}

func validateTest(r models.Record) error {
	t, ok := r.(models.TestResultEvent)
	if !ok {
		return fmt.Errorf("record %q is a %s, not a test", r.RecordID(), r.Kind())
	}
	if t.SampleCollected.IsZero() {
		return fmt.Errorf("record %q: sample collection time is required", t.ID)
	}
	rapid := t.TestType.Code == condense.RapidAntigenTest
	switch {
	case rapid && t.DeviceIdentifier == "":
		return fmt.Errorf("record %q: rapid antigen test requires a device identifier", t.ID)
	case !rapid && t.DeviceIdentifier != "":
		return fmt.Errorf("record %q: device identifier is only valid for rapid antigen tests", t.ID)
	}
	return nil
}

func validateRecovery(r models.Record) error {
	rec, ok := r.(models.RecoveryEvent)
	if !ok {
		return fmt.Errorf("record %q is a %s, not a recovery", r.RecordID(), r.Kind())
	}
	if rec.FirstPositiveResult.IsZero() {
		return fmt.Errorf("record %q: first positive result date is required", rec.ID)
	}
	return nil
}
