// Package ingest turns the CLI's raw wire format — substance names and
// value/unit strings exactly as a lab report states them — into the
// domain.AnalysisReport the classification core operates on, running
// name normalization (spec §4.1) and value parsing (spec §4.2) over
// every row.
package ingest

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wastecat/classify/internal/clp"
	"github.com/wastecat/classify/internal/domain"
	"github.com/wastecat/classify/internal/normalize"
	"github.com/wastecat/classify/internal/valueparse"
)

var validate = validator.New()

// RawRow is one substance reading exactly as a lab report states it,
// before normalization or unit conversion.
type RawRow struct {
	RawName      string               `json:"raw_name" validate:"required"`
	Value        string               `json:"value" validate:"required"`
	Unit         string               `json:"unit" validate:"required"`
	EvidenceSpan *domain.EvidenceSpan `json:"evidence_span,omitempty"`
}

// RawReport is one sample's header and raw rows, the CLI's unit of
// input.
type RawReport struct {
	SampleID   string    `json:"sample_id" validate:"required"`
	Matrix     string    `json:"matrix" validate:"required"`
	Lab        string    `json:"lab,omitempty"`
	ReportDate time.Time `json:"report_date,omitempty"`
	Rows       []RawRow  `json:"rows" validate:"required,min=1,dive"`
}

// Validate checks raw for the structural requirements every row and
// header must satisfy before normalization and value parsing run: a
// sample ID and matrix, and at least one row with a substance name,
// value, and unit.
func Validate(raw RawReport) error {
	return validate.Struct(raw)
}

// Build runs normalization and value parsing over every row of raw and
// returns the resulting AnalysisReport. It never fails: unrecognized
// units, unparseable values, and substances absent from the CLP dossier
// all degrade to diagnostics on the affected row (spec §7), never abort
// the batch.
func Build(raw RawReport) domain.AnalysisReport {
	rows := make([]domain.AnalysisRow, 0, len(raw.Rows))
	for _, rr := range raw.Rows {
		key := normalize.Normalize(rr.RawName)
		parsed := valueparse.Parse(rr.Value, rr.Unit)

		row := domain.AnalysisRow{
			RawName:      rr.RawName,
			CanonicalKey: key,
			Value:        parsed.Value,
			Unit:         parsed.Unit,
			EvidenceSpan: rr.EvidenceSpan,
		}
		if parsed.Diagnostic != nil {
			row.Diagnostics = append(row.Diagnostics, *parsed.Diagnostic)
		}
		if _, hasEntry := clp.Lookup(key); !hasEntry {
			row.Unknown = true
			row.Diagnostics = append(row.Diagnostics, domain.NewDiagnostic(
				domain.DiagUnknownSubstance,
				"no CLP dossier entry for canonical key \""+string(key)+"\"",
			))
		}
		rows = append(rows, row)
	}

	return domain.AnalysisReport{
		Header: domain.ReportHeader{
			SampleID:   raw.SampleID,
			Matrix:     domain.Matrix(raw.Matrix),
			Lab:        raw.Lab,
			ReportDate: raw.ReportDate,
		},
		Rows: rows,
	}
}
