package mcpserver

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wastecat/classify/internal/rules"
)

func newTestServer() *Server {
	logger := logrus.New()
	logger.SetOutput(testDiscard{})
	return New(logger, 2)
}

type testDiscard struct{}

func (testDiscard) Write(p []byte) (int, error) { return len(p), nil }

func TestResolveRulesetsDefaultsToAllBuiltins(t *testing.T) {
	s := newTestServer()
	selected, err := s.resolveRulesets(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("got %d rulesets, want 3 (nv, asfalt, fa)", len(selected))
	}
}

func TestResolveRulesetsDefaultOrderMatchesBuiltinOrder(t *testing.T) {
	s := newTestServer()
	want := rules.Builtin()
	for i := 0; i < 10; i++ {
		selected, err := s.resolveRulesets(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j, rs := range selected {
			if rs.Name != want[j].Name {
				t.Fatalf("resolveRulesets(nil)[%d] = %q, want %q (run %d)", j, rs.Name, want[j].Name, i)
			}
		}
	}
}

func TestResolveRulesetsRejectsUnknownName(t *testing.T) {
	s := newTestServer()
	if _, err := s.resolveRulesets([]string{"not-a-ruleset"}); err == nil {
		t.Error("expected an error for an unknown ruleset name")
	}
}

func TestResolveRulesetsHonorsExplicitSelection(t *testing.T) {
	s := newTestServer()
	selected, err := s.resolveRulesets([]string{"fa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 1 || selected[0].Name != "fa" {
		t.Fatalf("got %+v, want exactly the fa ruleset", selected)
	}
}
