package rules

import "github.com/wastecat/classify/internal/domain"

// Group identifiers recognized as rule subjects alongside single
// canonical keys (spec §3, Ruleset.subject). Each maps to the canonical
// keys of its member substances; a group's "value" for threshold
// evaluation is the sum of its members' exact readings (spec §4.6).
var groupMembers = map[domain.CanonicalKey][]domain.CanonicalKey{
	"pah_16_sum": {
		"naftalen", "acenaftylen", "acenaften", "fluoren",
		"fenantren", "antracen", "fluoranten", "pyren",
		"benso_a_antracen", "krysen", "benso_b_fluoranten",
		"benso_k_fluoranten", "benso_a_pyren", "dibenso_a_h_antracen",
		"benso_ghi_perylen", "indeno_123cd_pyren",
	},
	"pah_l_sum": {
		"naftalen", "acenaftylen", "acenaften", "fluoren",
		"fenantren", "antracen",
	},
	"pah_m_sum": {
		"fluoranten", "pyren", "benso_a_antracen", "krysen",
	},
	"pah_h_sum": {
		"benso_b_fluoranten", "benso_k_fluoranten", "benso_a_pyren",
		"dibenso_a_h_antracen", "benso_ghi_perylen", "indeno_123cd_pyren",
	},
}

// IsGroup reports whether subject is a recognized group identifier rather
// than a single-substance canonical key.
func IsGroup(subject domain.CanonicalKey) bool {
	_, ok := groupMembers[subject]
	return ok
}

// GroupMembers returns the canonical keys belonging to a group subject,
// and whether subject was recognized as a group at all.
func GroupMembers(subject domain.CanonicalKey) ([]domain.CanonicalKey, bool) {
	members, ok := groupMembers[subject]
	return members, ok
}
