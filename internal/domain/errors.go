package domain

import (
	"fmt"
	"time"
)

// ErrorKind enumerates the classification error taxonomy of spec §7. The
// first two are fatal (returned, never recovered); the rest are non-fatal
// and always surface as Diagnostics on the affected row instead of
// aborting classification.
type ErrorKind string

const (
	ErrInvalidRuleset   ErrorKind = "INVALID_RULESET"
	ErrIntegrityError   ErrorKind = "INTEGRITY_ERROR"
	ErrUnknownSubstance ErrorKind = "UNKNOWN_SUBSTANCE"
	ErrUnparseableValue ErrorKind = "UNPARSEABLE_VALUE"
	ErrMatrixMismatch   ErrorKind = "MATRIX_MISMATCH"
)

// ClassificationError is the error type returned by the loader and engines
// for the two fatal kinds (InvalidRuleset at load time, IntegrityError at
// CLP dossier init). Non-fatal kinds never reach this type; they are
// recorded as Diagnostic values on the row instead.
type ClassificationError struct {
	Kind      ErrorKind
	Message   string
	Ruleset   string
	Timestamp time.Time
}

func (e *ClassificationError) Error() string {
	if e.Ruleset != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Ruleset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewInvalidRulesetError reports a ruleset that failed structural or
// monotonicity validation at load time. Fatal: the ruleset is refused.
func NewInvalidRulesetError(ruleset, message string) *ClassificationError {
	return &ClassificationError{
		Kind:      ErrInvalidRuleset,
		Message:   message,
		Ruleset:   ruleset,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntegrityError reports a violation found in the compiled-in CLP
// dossier or built-in rulesets. These are program invariants, not user
// input, so callers are expected to panic rather than attempt recovery.
func NewIntegrityError(message string) *ClassificationError {
	return &ClassificationError{
		Kind:      ErrIntegrityError,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewDiagnostic builds the Diagnostic for a non-fatal error kind, to be
// attached to the offending AnalysisRow rather than returned as an error.
func NewDiagnostic(kind ErrorKind, message string) Diagnostic {
	return Diagnostic{Code: string(kind), Message: message}
}
