package rules

import _ "embed"

//go:embed builtin/nv.json
var nvJSON []byte

//go:embed builtin/asfalt.json
var asfaltJSON []byte

//go:embed builtin/fa.json
var faJSON []byte

// Builtin returns the three compiled-in rulesets (spec §4.3): the
// Swedish soil sensitivity ladder (nv), the asphalt PAH ladder (asfalt),
// and the category-label descriptor for hazardous-waste verdicts (fa).
// The substantive FA/Icke FA determination is performed by the HP engine
// (internal/hp) consulting the CLP dossier, not by a threshold walk; the
// fa ruleset exists only so its category labels load through the same
// validator as the others, per spec §4.3's "compiled in as byte blobs
// and loaded through the same validator" requirement.
//
// Parsing happens once, at package init, and panics on any failure:
// built-in data is a program invariant (spec §9).
func Builtin() []*Ruleset {
	return []*Ruleset{builtinNV, builtinAsfalt, builtinFA}
}

var (
	builtinNV     = mustParseBuiltin("nv", nvJSON)
	builtinAsfalt = mustParseBuiltin("asfalt", asfaltJSON)
	builtinFA     = mustParseBuiltin("fa", faJSON)
)
