// Package clp holds the embedded CLP substance dossier (spec §4.4): an
// immutable, process-wide table mapping canonical substance keys to their
// worst-case compound, conversion factor, H-codes, M-factors, and SCLs.
package clp

import (
	"embed"
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wastecat/classify/internal/domain"
)

//go:embed dossier.json
var dossierFS embed.FS

// knownHCodes is the set of H-codes the HP engine (C8) understands, per
// spec §4.4's integrity invariant: "every referenced H-code belongs to
// the set understood by C8".
var knownHCodes = map[string]bool{
	"H300": true, "H301": true, "H302": true,
	"H310": true, "H311": true, "H312": true,
	"H314": true, "H315": true, "H317": true, "H319": true,
	"H330": true, "H331": true, "H332": true, "H334": true,
	"H340": true, "H341": true,
	"H350": true, "H350i": true, "H351": true,
	"H360": true, "H360F": true, "H360D": true, "H360FD": true, "H361": true, "H362": true,
	"H370": true, "H371": true, "H372": true, "H373": true,
	"H400": true, "H410": true, "H411": true, "H412": true, "H413": true,
}

// headCode collapses display variants to the code used for per-H-code
// aggregation (spec §4.4): H350i -> H350; H360F/H360D/H360FD -> H360.
func headCode(hcode string) string {
	switch hcode {
	case "H350i":
		return "H350"
	case "H360F", "H360D", "H360FD":
		return "H360"
	default:
		return hcode
	}
}

// SCL is a Specific Concentration Limit overriding the generic threshold
// for one (compound, H-code) pair.
type SCL struct {
	HCode    string
	LimitPct decimal.Decimal
}

// Entry is one substance's CLP dossier record.
type Entry struct {
	CanonicalKey     domain.CanonicalKey
	CompoundLabel    string
	CAS              string
	ConversionFactor decimal.Decimal
	HCodes           []string // display codes, as declared
	MAcute           decimal.Decimal
	MChronic         decimal.Decimal
	SCLs             []SCL
}

// HasHeadCode reports whether e carries hcode, after collapsing variants
// to their head code for comparison.
func (e *Entry) HasHeadCode(hcode string) bool {
	for _, h := range e.HCodes {
		if headCode(h) == hcode {
			return true
		}
	}
	return false
}

// DisplayCode returns the exact declared variant of hcode's head code
// (e.g. "H350i" rather than "H350"), for use in trace/contribution
// output, falling back to hcode itself if none is carried.
func (e *Entry) DisplayCode(hcode string) string {
	for _, h := range e.HCodes {
		if headCode(h) == hcode {
			return h
		}
	}
	return hcode
}

// SCLFor returns the SCL limit for hcode if e declares one. It does not
// compare it with the generic threshold; the HP engine keeps the SCL
// only when it is stricter (spec §4.7).
func (e *Entry) SCLFor(hcode string) (decimal.Decimal, bool) {
	for _, scl := range e.SCLs {
		if headCode(scl.HCode) == hcode {
			return scl.LimitPct, true
		}
	}
	return decimal.Decimal{}, false
}

type dossierJSON struct {
	Entries []entryJSON `json:"entries"`
}

type entryJSON struct {
	CanonicalKey     string    `json:"canonical_key"`
	CompoundLabel    string    `json:"compound_label"`
	CAS              string    `json:"cas"`
	ConversionFactor string    `json:"conversion_factor"`
	HCodes           []string  `json:"h_codes"`
	MAcute           string    `json:"m_acute"`
	MChronic         string    `json:"m_chronic"`
	SCLs             []sclJSON `json:"scls"`
}

type sclJSON struct {
	HCode    string `json:"h_code"`
	LimitPct string `json:"limit_pct"`
}

var (
	once    sync.Once
	table   map[domain.CanonicalKey]*Entry
	lookups *lru.Cache[domain.CanonicalKey, *Entry]
)

func load() {
	raw, err := dossierFS.ReadFile("dossier.json")
	if err != nil {
		panic(domain.NewIntegrityError("cannot read embedded CLP dossier: " + err.Error()).Error())
	}

	var doc dossierJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(domain.NewIntegrityError("embedded CLP dossier is malformed JSON: " + err.Error()).Error())
	}

	table = make(map[domain.CanonicalKey]*Entry, len(doc.Entries))
	for _, e := range doc.Entries {
		key := domain.CanonicalKey(e.CanonicalKey)
		if key == "" {
			panic(domain.NewIntegrityError("CLP dossier entry with empty canonical_key").Error())
		}
		if _, dup := table[key]; dup {
			panic(domain.NewIntegrityError("CLP dossier duplicate canonical_key \"" + e.CanonicalKey + "\"").Error())
		}

		factor, err := decimal.NewFromString(e.ConversionFactor)
		if err != nil {
			panic(domain.NewIntegrityError("CLP entry \"" + e.CanonicalKey + "\" has unparseable conversion_factor").Error())
		}
		mAcute, err := decimal.NewFromString(orDefault(e.MAcute, "1"))
		if err != nil {
			panic(domain.NewIntegrityError("CLP entry \"" + e.CanonicalKey + "\" has unparseable m_acute").Error())
		}
		mChronic, err := decimal.NewFromString(orDefault(e.MChronic, "1"))
		if err != nil {
			panic(domain.NewIntegrityError("CLP entry \"" + e.CanonicalKey + "\" has unparseable m_chronic").Error())
		}

		for _, h := range e.HCodes {
			if !knownHCodes[h] {
				panic(domain.NewIntegrityError("CLP entry \"" + e.CanonicalKey + "\" references unknown H-code \"" + h + "\"").Error())
			}
		}

		scls := make([]SCL, 0, len(e.SCLs))
		for _, s := range e.SCLs {
			if !knownHCodes[s.HCode] {
				panic(domain.NewIntegrityError("CLP entry \"" + e.CanonicalKey + "\" SCL references unknown H-code \"" + s.HCode + "\"").Error())
			}
			limit, err := decimal.NewFromString(s.LimitPct)
			if err != nil {
				panic(domain.NewIntegrityError("CLP entry \"" + e.CanonicalKey + "\" has unparseable SCL limit_pct").Error())
			}
			scls = append(scls, SCL{HCode: s.HCode, LimitPct: limit})
		}

		table[key] = &Entry{
			CanonicalKey:     key,
			CompoundLabel:    e.CompoundLabel,
			CAS:              e.CAS,
			ConversionFactor: factor,
			HCodes:           e.HCodes,
			MAcute:           mAcute,
			MChronic:         mChronic,
			SCLs:             scls,
		}
	}

	cache, err := lru.New[domain.CanonicalKey, *Entry](256)
	if err != nil {
		panic(domain.NewIntegrityError("cannot initialize CLP lookup cache: " + err.Error()).Error())
	}
	lookups = cache
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Lookup returns the dossier entry for key, and whether one exists. The
// dossier is initialized lazily and idempotently on first use (spec §5).
func Lookup(key domain.CanonicalKey) (*Entry, bool) {
	once.Do(load)
	if cached, ok := lookups.Get(key); ok {
		return cached, cached != nil
	}
	entry, ok := table[key]
	lookups.Add(key, entry)
	return entry, ok
}

// KnownHCode reports whether hcode (or its head code) is one of the
// H-codes this module's HP engine understands.
func KnownHCode(hcode string) bool {
	return knownHCodes[headCode(hcode)] || knownHCodes[hcode]
}

// HeadCode exposes the variant-collapsing rule to other packages that
// need to aggregate by head code (internal/hp).
func HeadCode(hcode string) string { return headCode(hcode) }
