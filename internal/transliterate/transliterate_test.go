package transliterate

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"hcert/pkg/testutil"
)

func TestTransliterate(t *testing.T) {
	tr := New()

	cases := []struct {
		name       string
		family     string
		given      string
		wantFamily string
		wantGiven  string
		canonical  bool
	}{
		{"apostrophe and hyphen", "O'Brien-Smith", "Mary Ann", "O<BRIEN<SMITH", "MARY<ANN", true},
		{"german umlauts", "Müller", "Jürgen", "MUELLER", "JUERGEN", true},
		{"sharp s", "Strauß", "Hans", "STRAUSS", "HANS", true},
		{"nordic letters", "Ångström", "Søren", "AANGSTROEM", "SOEREN", true},
		{"spanish accents", "Núñez", "José María", "NUNEZ", "JOSE<MARIA", true},
		{"cyrillic", "Иванов", "Пётр", "IVANOV", "PETR", true},
		{"greek", "Καραμανλής", "Νίκος", "KARAMANLIS", "NIKOS", true},
		{"decomposed input", "José", "", "JOSE", "", true},
		{"unmapped script falls back", "王", "小明", "王", "小明", false},
		{"digits fall back untouched", "Smith 2nd", "Jo", "SMITH 2ND", "JO", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.Transliterate(tc.family, tc.given)
			assert.Equal(t, tc.wantFamily, got.FamilyNameTranslit)
			assert.Equal(t, tc.wantGiven, got.GivenNameTranslit)
			assert.Equal(t, tc.canonical, got.Canonical)
			assert.Equal(t, tc.family, got.FamilyName)
			assert.Equal(t, tc.given, got.GivenName)
		})
	}
}

func TestTransliterateStable(t *testing.T) {
	tr := New()
	canonical := regexp.MustCompile(`^[A-Z<]*$`)

	testutil.Given(t, "the name O'Brien-Smith", func(t *testing.T) {
		testutil.When(t, "transliterated repeatedly from many goroutines", func(t *testing.T) {
			results := make([]Name, 32)
			var wg sync.WaitGroup
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = tr.Transliterate("O'Brien-Smith", "")
				}(i)
			}
			wg.Wait()

			testutil.Then(t, "every result is identical and in the canonical alphabet", func(t *testing.T) {
				for _, r := range results {
					assert.Equal(t, results[0], r)
					assert.Regexp(t, canonical, r.FamilyNameTranslit)
				}
			})
		})
	})
}

func TestWithTableOverrides(t *testing.T) {
	tr := New(WithTable(map[rune]string{'Ä': "A"}))
	got := tr.Transliterate("Äkäslompolo", "")
	assert.Equal(t, "AKASLOMPOLO", got.FamilyNameTranslit)

	// The default table is not mutated by overrides.
	assert.Equal(t, "AEKAESLOMPOLO", New().Transliterate("Äkäslompolo", "").FamilyNameTranslit)
}

func TestSplitFullName(t *testing.T) {
	cases := map[string][2]string{
		"Ada Lovelace":      {"Ada", "Lovelace"},
		"Mary Ann O'Brien":  {"Mary Ann", "O'Brien"},
		"  Cher  ":          {"", "Cher"},
		"Jean-Luc  Picard ": {"Jean-Luc", "Picard"},
		"":                  {"", ""},
	}
	for in, want := range cases {
		given, family := SplitFullName(in)
		assert.Equal(t, want[0], given, "given of %q", in)
		assert.Equal(t, want[1], family, "family of %q", in)
	}
}

func TestTransliterateFull(t *testing.T) {
	got := New().TransliterateFull("Zoë Saldaña")
	assert.Equal(t, "Zoë", got.GivenName)
	assert.Equal(t, "Saldaña", got.FamilyName)
	assert.Equal(t, "ZOE", got.GivenNameTranslit)
	assert.Equal(t, "SALDANA", got.FamilyNameTranslit)
}
