// Package refdata maps source terminology codes onto the value sets the
// health-certificate schema accepts.
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ValueSet names one schema value set.
type ValueSet string

const (
	DiseaseAgentTargeted    ValueSet = "disease-agent-targeted"
	VaccineProphylaxis      ValueSet = "vaccine-prophylaxis"
	VaccineMedicinalProduct ValueSet = "vaccine-medicinal-product"
	VaccineManufacturer     ValueSet = "vaccine-mah-manf"
	TestType                ValueSet = "test-type"
	TestManufacturer        ValueSet = "test-manf"
)

// ErrUnmapped is returned when a code has no entry in the value set.
var ErrUnmapped = errors.New("code not mapped")

// Provider resolves a source code to its value-set code.
type Provider interface {
	Lookup(ctx context.Context, set ValueSet, code string) (string, error)
}

// Tables holds value-set mappings: set -> source code -> schema code.
type Tables map[ValueSet]map[string]string

// Static serves lookups from in-memory tables. It is read-only after
// construction and safe for concurrent use.
type Static struct {
	tables Tables
}

// NewStatic copies tables into a Static provider.
func NewStatic(tables Tables) *Static {
	return &Static{tables: Merge(nil, tables)}
}

func (s *Static) Lookup(_ context.Context, set ValueSet, code string) (string, error) {
	code = strings.TrimSpace(code)
	if mapped, ok := s.tables[set][code]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("%s %q: %w", set, code, ErrUnmapped)
}

// LoadJSON decodes tables from r. The document is an object keyed by value
// set name whose values are objects of source code to schema code.
func LoadJSON(r io.Reader) (Tables, error) {
	var raw map[string]map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value sets: %w", err)
	}
	tables := make(Tables, len(raw))
	for set, entries := range raw {
		tables[ValueSet(set)] = entries
	}
	return tables, nil
}

// Merge returns a new Tables holding base overlaid with overlay, entry by
// entry. Neither argument is modified.
func Merge(base, overlay Tables) Tables {
	out := make(Tables, len(base)+len(overlay))
	for _, src := range []Tables{base, overlay} {
		for set, entries := range src {
			dst, ok := out[set]
			if !ok {
				dst = make(map[string]string, len(entries))
				out[set] = dst
			}
			for code, mapped := range entries {
				dst[code] = mapped
			}
		}
	}
	return out
}

// Defaults returns the built-in COVID-19 value sets. Schema codes map to
// themselves so already-normalised records pass through.
func Defaults() Tables {
	return Tables{
		DiseaseAgentTargeted: {
			"840539006": "840539006",
		},
		VaccineProphylaxis: {
			"1119349007": "1119349007",
			"1119305005": "1119305005",
			"J07BX03":    "J07BX03",
		},
		VaccineMedicinalProduct: {
			"EU/1/20/1528": "EU/1/20/1528",
			"EU/1/20/1507": "EU/1/20/1507",
			"EU/1/21/1529": "EU/1/21/1529",
			"EU/1/20/1525": "EU/1/20/1525",
		},
		VaccineManufacturer: {
			"ORG-100030215": "ORG-100030215",
			"ORG-100031184": "ORG-100031184",
			"ORG-100001699": "ORG-100001699",
			"ORG-100001417": "ORG-100001417",
		},
		TestType: {
			"LP6464-4":   "LP6464-4",
			"LP217198-3": "LP217198-3",
		},
		TestManufacturer: {
			"1232": "1232",
			"1304": "1304",
			"1065": "1065",
		},
	}
}
