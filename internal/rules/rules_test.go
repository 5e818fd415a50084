package rules

import (
	"testing"

	"github.com/wastecat/classify/internal/domain"
)

func TestBuiltinRulesetsLoad(t *testing.T) {
	sets := Builtin()
	if len(sets) != 3 {
		t.Fatalf("expected 3 builtin rulesets, got %d", len(sets))
	}
	names := map[string]bool{}
	for _, rs := range sets {
		names[rs.Name] = true
	}
	for _, want := range []string{"nv", "asfalt", "fa"} {
		if !names[want] {
			t.Errorf("expected builtin ruleset %q to be present", want)
		}
	}
}

func TestLoadRejectsEmptyCategories(t *testing.T) {
	_, err := Load([]byte(`{"name":"x","categories":[],"rules":[]}`))
	if err == nil {
		t.Fatal("expected error for empty categories")
	}
}

func TestLoadRejectsDuplicateCategories(t *testing.T) {
	_, err := Load([]byte(`{"name":"x","categories":["A","A"],"rules":[]}`))
	if err == nil {
		t.Fatal("expected error for duplicate categories")
	}
}

func TestLoadRejectsNonMonotonicThresholds(t *testing.T) {
	doc := `{"name":"x","categories":["A","B"],"rules":[
		{"substance":"bly","thresholds":{"A":"10","B":"5"}}
	]}`
	_, err := Load([]byte(doc))
	if err == nil {
		t.Fatal("expected error for non-monotonic thresholds")
	}
}

func TestLoadRejectsUnknownCategoryReference(t *testing.T) {
	doc := `{"name":"x","categories":["A","B"],"rules":[
		{"substance":"bly","thresholds":{"A":"1","C":"2"}}
	]}`
	_, err := Load([]byte(doc))
	if err == nil {
		t.Fatal("expected error for reference to unknown category")
	}
}

func TestLoadRejectsUnrecognizedGroup(t *testing.T) {
	doc := `{"name":"x","categories":["A"],"rules":[
		{"group":"not_a_real_group","thresholds":{"A":"1"}}
	]}`
	_, err := Load([]byte(doc))
	if err == nil {
		t.Fatal("expected error for unrecognized group identifier")
	}
}

func TestLoadRejectsUnknownSubstanceSubject(t *testing.T) {
	doc := `{"name":"x","categories":["A"],"rules":[
		{"substance":"arsnik","thresholds":{"A":"1"}}
	]}`
	_, err := Load([]byte(doc))
	if err == nil {
		t.Fatal("expected error for a substance subject absent from the CLP dossier")
	}
}

func TestLoadRejectsBadMatrixFilter(t *testing.T) {
	doc := `{"name":"x","matrix_filter":"Vatten","categories":["A"],"rules":[]}`
	_, err := Load([]byte(doc))
	if err == nil {
		t.Fatal("expected error for unknown matrix filter")
	}
}

func TestLoadAcceptsValidRuleset(t *testing.T) {
	doc := `{"name":"x","version":"1.0","matrix_filter":"Jord","categories":["KM","MKM"],"rules":[
		{"substance":"arsenik","thresholds":{"KM":"0","MKM":"25"}}
	]}`
	rs, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Name != "x" || len(rs.Rules) != 1 {
		t.Fatalf("unexpected ruleset: %+v", rs)
	}
	if rs.MatrixFilter == nil || *rs.MatrixFilter != domain.MatrixJord {
		t.Errorf("expected matrix filter Jord, got %v", rs.MatrixFilter)
	}
}

func TestGroupMembers(t *testing.T) {
	if !IsGroup("pah_16_sum") {
		t.Errorf("expected pah_16_sum to be a recognized group")
	}
	members, ok := GroupMembers("pah_16_sum")
	if !ok || len(members) != 16 {
		t.Errorf("expected 16 PAH-16 members, got %d", len(members))
	}
	if IsGroup("arsenik") {
		t.Errorf("arsenik should not be treated as a group")
	}
}
