package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseUserLiteralAcceptsCommaDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"comma separator", "12,5", "12.5"},
		{"dot separator", "12.5", "12.5"},
		{"leading/trailing space", "  3,14  ", "3.14"},
		{"integer", "42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUserLiteral(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := MustFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseUserLiteral(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}

func TestParseUserLiteralRejectsGarbage(t *testing.T) {
	if _, err := ParseUserLiteral("n.a."); err == nil {
		t.Errorf("expected error parsing non-numeric literal")
	}
}

func TestExceedsAndAtLeast(t *testing.T) {
	low := MustFromString("1.0")
	high := MustFromString("2.0")

	if !Exceeds(high, low) {
		t.Errorf("expected 2.0 to exceed 1.0")
	}
	if Exceeds(low, high) {
		t.Errorf("expected 1.0 to not exceed 2.0")
	}
	if Exceeds(low, low) {
		t.Errorf("Exceeds must be strict: equal values should not exceed")
	}
	if !AtLeast(low, low) {
		t.Errorf("AtLeast must include equality")
	}
}

func TestSumAll(t *testing.T) {
	values := []decimal.Decimal{
		MustFromString("1.1"),
		MustFromString("2.2"),
		MustFromString("3.3"),
	}
	got := SumAll(values)
	want := MustFromString("6.6")
	if !got.Equal(want) {
		t.Errorf("SumAll = %v, want %v", got, want)
	}
}

func TestSumAllEmpty(t *testing.T) {
	if got := SumAll(nil); !got.IsZero() {
		t.Errorf("SumAll(nil) = %v, want 0", got)
	}
}
