package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticResultClassify(t *testing.T) {
	collected := time.Date(2021, 6, 1, 9, 30, 0, 0, time.UTC)

	t.Run("test type present yields test record", func(t *testing.T) {
		rec := DiagnosticResult{
			ID:          "obs-1",
			TestType:    Coding{Code: "LP217198-3"},
			EffectiveAt: collected,
		}.Classify()

		test, ok := rec.(TestResultEvent)
		require.True(t, ok)
		assert.Equal(t, KindTest, test.Kind())
		assert.Equal(t, collected, test.SampleCollected)
	})

	t.Run("blank test type yields recovery record", func(t *testing.T) {
		rec := DiagnosticResult{
			ID:          "obs-2",
			TestType:    Coding{Code: "  "},
			EffectiveAt: collected,
		}.Classify()

		recovery, ok := rec.(RecoveryEvent)
		require.True(t, ok)
		assert.Equal(t, KindRecovery, recovery.Kind())
		assert.Equal(t, collected, recovery.FirstPositiveResult)
	})
}

func TestKindIsValid(t *testing.T) {
	for _, k := range []Kind{KindVaccination, KindTest, KindRecovery} {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, Kind("booster").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestRecordAccessors(t *testing.T) {
	disease := Coding{Code: "840539006"}
	d := DiagnosticResult{ID: "obs-3", DiseaseTargeted: disease, Country: "gb", Issuer: "NHS Digital"}

	for _, rec := range []Record{
		d.Classify(),
		DiagnosticResult{ID: "obs-3", DiseaseTargeted: disease, TestType: Coding{Code: "LP6464-4"}, Country: "gb", Issuer: "NHS Digital"}.Classify(),
		VaccinationEvent{ID: "obs-3", DiseaseTargeted: disease, Country: "gb", Issuer: "NHS Digital"},
	} {
		assert.Equal(t, "obs-3", rec.RecordID())
		assert.Equal(t, disease, rec.Disease())
		assert.Equal(t, "gb", rec.CountryCode())
		assert.Equal(t, "NHS Digital", rec.IssuerName())
	}
}

func TestValidateSubject(t *testing.T) {
	dob := time.Date(1980, 2, 29, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateSubject(Subject{FullName: "Ada Lovelace", DateOfBirth: dob}))
	assert.NoError(t, ValidateSubject(Subject{FamilyName: "Lovelace", DateOfBirth: dob}))

	err := ValidateSubject(Subject{DateOfBirth: dob})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FullName is required")

	err = ValidateSubject(Subject{FullName: "Ada Lovelace"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DateOfBirth is required")

	err = ValidateSubject(Subject{FullName: "Ada Lovelace", DateOfBirth: time.Now().Add(48 * time.Hour)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be in the future")
}

func TestValidateLocation(t *testing.T) {
	assert.NoError(t, ValidateLocation(Location{Name: "Leeds Test Site", Country: "GB"}))
	assert.NoError(t, ValidateLocation(Location{Name: "Leeds Test Site"}))
	assert.Error(t, ValidateLocation(Location{Country: "GB"}))
	assert.Error(t, ValidateLocation(Location{Name: "Somewhere", Country: "XX"}))
}

func TestSubjectHashIgnoresCaseAndSpacing(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Subject{FullName: "jane doe ", DateOfBirth: dob}
	b := Subject{GivenName: "Jane", FamilyName: "Doe", DateOfBirth: dob}

	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestResultConstructors(t *testing.T) {
	ok := Success("r1", "HC1:ABC")
	assert.True(t, ok.CanProvide)
	assert.False(t, ok.Failed())

	bad := Failure("r2", ResultInvalidLocation, "Name is required")
	assert.False(t, bad.CanProvide)
	assert.True(t, bad.Failed())
	assert.Empty(t, bad.Barcode)
}
