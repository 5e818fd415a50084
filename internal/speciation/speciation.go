// Package speciation resolves a canonical substance reading into the
// CLP compound view the HP engine reasons about (spec §4.5): an
// elemental concentration in mg/kg converted to percent-by-weight of the
// assumed worst-case compound.
package speciation

import (
	"github.com/shopspring/decimal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wastecat/classify/internal/clp"
	"github.com/wastecat/classify/internal/domain"
)

var hundredth = decimal.NewFromInt(10000)

// View is the resolved compound view for one row: its concentration in
// percent by weight, plus the flags the HP engine needs to decide
// individual-limit eligibility and no-entry handling.
type View struct {
	CanonicalKey     domain.CanonicalKey
	Compound         string
	CAS              string
	ConcentrationPct decimal.Decimal
	BelowDetection   bool
	NoSpeciation     bool // true when no CLP entry exists; passed through at factor 1.0
	Entry            *clp.Entry
}

type cacheKey struct {
	key    domain.CanonicalKey
	amount string
	kind   domain.ValueKind
}

// cache memoizes Resolve by (canonical key, value), since the same
// reference concentrations recur often across a batch of samples drawn
// from the same matrix.
var cache, _ = lru.New[cacheKey, View](1024)

// Resolve implements spec §4.5. Missing values have nothing to speciate
// and return ok=false. A substance with no CLP dossier entry (for
// example a PAH the dossier does not list) is passed through at factor
// 1.0 and flagged NoSpeciation, per spec §4.5; PAHs that do have an entry
// use its factor of 1.0 and are not flagged.
func Resolve(key domain.CanonicalKey, value domain.AnalysisValue) (View, bool) {
	if value.IsMissing() {
		return View{}, false
	}

	ck := cacheKey{key: key, amount: value.Amount().String(), kind: value.Kind()}
	if cached, ok := cache.Get(ck); ok {
		return cached, true
	}

	entry, hasEntry := clp.Lookup(key)
	factor := decimal.NewFromInt(1)
	var compound, cas string
	if hasEntry {
		factor = entry.ConversionFactor
		compound = entry.CompoundLabel
		cas = entry.CAS
	}

	concentrationPct := value.Amount().Mul(factor).DivRound(hundredth, 28)

	view := View{
		CanonicalKey:     key,
		Compound:         compound,
		CAS:              cas,
		ConcentrationPct: concentrationPct,
		BelowDetection:   value.IsBelowDetection(),
		NoSpeciation:     !hasEntry,
		Entry:            entry,
	}
	cache.Add(ck, view)
	return view, true
}
