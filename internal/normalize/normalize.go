// Package normalize turns heterogeneous lab-report substance names into the
// canonical keys used throughout the classification core (spec §4.1).
package normalize

import (
	"regexp"
	"strings"

	"github.com/wastecat/classify/internal/domain"
)

var (
	parentheticalQualifier = regexp.MustCompile(`\((summa|total)\)`)
	footnoteMarker         = regexp.MustCompile(`[*\x{00B9}\x{00B2}\x{00B3}\x{2070}-\x{2079}]`)
	superscriptLetter      = regexp.MustCompile(`\^[a-zA-Z]\b`)
	nonAlphanumRun         = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRun          = regexp.MustCompile(`\s+`)
)

var swedishFold = strings.NewReplacer(
	"å", "a", "ä", "a", "ö", "o",
	"Å", "a", "Ä", "a", "Ö", "o",
	"é", "e", "É", "e",
)

// aliases maps lab-report synonyms (already lowercased, trimmed, folded, and
// underscore-collapsed) to the canonical key they denote. This is the
// static alias table spec §4.1 requires: metal synonyms, PAH spelling
// variants, and analytical package names.
var aliases = map[string]domain.CanonicalKey{
	"arsenic":           "arsenik",
	"as":                "arsenik",
	"lead":              "bly",
	"pb":                "bly",
	"cadmium":           "kadmium",
	"cd":                "kadmium",
	"copper":            "koppar",
	"cu":                "koppar",
	"mercury":           "kvicksilver",
	"hg":                "kvicksilver",
	"chromium":          "krom",
	"cr":                "krom",
	"chromium_tot":      "krom",
	"nickel":            "nickel",
	"ni":                "nickel",
	"zinc":              "zink",
	"zn":                "zink",
	"cobalt":            "kobolt",
	"co":                "kobolt",
	"vanadium":          "vanadin",
	"v":                 "vanadin",
	"barium":            "barium",
	"ba":                "barium",
	"benzo_a_pyrene":    "benso_a_pyren",
	"benzo(a)pyrene":    "benso_a_pyren",
	"bap":               "benso_a_pyren",
	"benzo_a_anthracene": "benso_a_antracen",
	"naphthalene":       "naftalen",
	"phenanthrene":      "fenantren",
	"anthracene":        "antracen",
	"fluoranthene":      "fluoranten",
	"pyrene":            "pyren",
	"pah_16":            "pah_16_sum",
	"pah16":             "pah_16_sum",
	"sum_pah16":         "pah_16_sum",
	"sum_pah_16":        "pah_16_sum",
	"pah_l":             "pah_l_sum",
	"pah_m":             "pah_m_sum",
	"pah_h":             "pah_h_sum",
}

// Normalize joins a raw lab-report substance name to a canonical key,
// following the ordered steps of spec §4.1: lowercase, trim, collapse
// whitespace, fold Swedish characters, strip analytical-qualifier
// suffixes, collapse non-alphanumeric runs to underscores, then look the
// result up in the alias table (falling back to the collapsed form
// itself, since many canonical keys are already their own raw spelling,
// e.g. "arsenik" or "bly").
func Normalize(raw string) domain.CanonicalKey {
	s := strings.ToLower(raw)
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = swedishFold.Replace(s)
	s = parentheticalQualifier.ReplaceAllString(s, "")
	s = footnoteMarker.ReplaceAllString(s, "")
	s = superscriptLetter.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	collapsed := nonAlphanumRun.ReplaceAllString(s, "_")
	collapsed = strings.Trim(collapsed, "_")

	if canonical, ok := aliases[collapsed]; ok {
		return canonical
	}
	return domain.CanonicalKey(collapsed)
}
