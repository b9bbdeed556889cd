// Package transliterate renders personal names in the ICAO Doc 9303
// machine-readable form embedded in health certificates (fnt/gnt).
package transliterate

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Filler replaces separators in the machine-readable form.
const Filler = "<"

var (
	canonicalPattern = regexp.MustCompile(`^[A-Z<]*$`)
	fillerReplacer   = strings.NewReplacer("-", Filler, " ", Filler, "'", Filler)
)

// Name is a subject's name in display and transliterated form.
type Name struct {
	FamilyName         string
	FamilyNameTranslit string
	GivenName          string
	GivenNameTranslit  string
	Canonical          bool
}

// Transliterator maps names through a fixed code-point table. It is safe
// for concurrent use once constructed.
type Transliterator struct {
	table map[rune]string
}

// Option configures a Transliterator.
type Option func(*Transliterator)

// WithTable adds or overrides code-point mappings.
func WithTable(extra map[rune]string) Option {
	return func(t *Transliterator) {
		for r, s := range extra {
			t.table[r] = s
		}
	}
}

// New returns a Transliterator using the ICAO table.
func New(opts ...Option) *Transliterator {
	t := &Transliterator{
		table: make(map[rune]string, len(icaoTable)),
	}
	for r, s := range icaoTable {
		t.table[r] = s
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transliterate returns the display and machine-readable forms of a name.
// When both machine-readable fields reduce to [A-Z<]*, the filler form is
// used; otherwise the per-character transliteration is kept as is.
func (t *Transliterator) Transliterate(familyName, givenName string) Name {
	family := t.mapRunes(familyName)
	given := t.mapRunes(givenName)

	familyFilled := fillerReplacer.Replace(family)
	givenFilled := fillerReplacer.Replace(given)

	name := Name{
		FamilyName: strings.TrimSpace(familyName),
		GivenName:  strings.TrimSpace(givenName),
	}
	if canonicalPattern.MatchString(familyFilled) && canonicalPattern.MatchString(givenFilled) {
		name.FamilyNameTranslit = familyFilled
		name.GivenNameTranslit = givenFilled
		name.Canonical = true
		return name
	}
	name.FamilyNameTranslit = family
	name.GivenNameTranslit = given
	return name
}

// TransliterateFull splits a display name on its last space and
// transliterates the parts.
func (t *Transliterator) TransliterateFull(fullName string) Name {
	given, family := SplitFullName(fullName)
	return t.Transliterate(family, given)
}

func (t *Transliterator) mapRunes(s string) string {
	// Casers carry state and are not shared between goroutines.
	s = cases.Upper(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := t.table[r]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitFullName splits on the last space into given and family names. A name
// without a space is treated as a family name only.
func SplitFullName(fullName string) (given, family string) {
	fullName = strings.TrimSpace(fullName)
	i := strings.LastIndex(fullName, " ")
	if i < 0 {
		return "", fullName
	}
	return strings.TrimSpace(fullName[:i]), strings.TrimSpace(fullName[i+1:])
}
