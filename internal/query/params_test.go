package query

import (
	"errors"
	"testing"

	"github.com/Ning0612/Regsync/internal/domain"
)

func TestParseParams_TextFields(t *testing.T) {
	params, err := ParseParams(map[string]string{
		"project_id":      "42",
		"repository_name": "library/alpine",
		"tag":             "3.19",
	})
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}
	if len(params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(params))
	}

	byField := make(map[Field]Param)
	for _, p := range params {
		byField[p.Field] = p
	}
	if byField[FieldProjectID].Text != "42" {
		t.Errorf("project_id: got %q", byField[FieldProjectID].Text)
	}
	if byField[FieldRepositoryName].Text != "library/alpine" {
		t.Errorf("repository_name: got %q", byField[FieldRepositoryName].Text)
	}
	if byField[FieldTag].Text != "3.19" {
		t.Errorf("tag: got %q", byField[FieldTag].Text)
	}
}

func TestParseParams_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
	}{
		{"unknown field", map[string]string{"repo": "alpine"}},
		{"empty value", map[string]string{"digest": ""}},
		{"unknown severity", map[string]string{"severity": "catastrophic"}},
		{"score missing comma", map[string]string{"cvss_score_v3": "7.5"}},
		{"score three parts", map[string]string{"cvss_score_v3": "1,2,3"}},
		{"score non-numeric lower", map[string]string{"cvss_score_v3": "low,9"}},
		{"score non-numeric upper", map[string]string{"cvss_score_v3": "1,high"}},
		{"score below zero", map[string]string{"cvss_score_v3": "-1,5"}},
		{"score above ten", map[string]string{"cvss_score_v3": "5,10.1"}},
		{"score bounds reversed", map[string]string{"cvss_score_v3": "9,2"}},
		{"valid field among invalid", map[string]string{"tag": "latest", "severity": "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams(tt.raw)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseParams_SeverityNormalized(t *testing.T) {
	params, err := ParseParams(map[string]string{"severity": "Critical"})
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}
	if params[0].Field != FieldSeverity || params[0].Text != "critical" {
		t.Errorf("expected lowercased severity, got %+v", params[0])
	}
}

func TestParseParams_ScoreRange(t *testing.T) {
	params, err := ParseParams(map[string]string{"cvss_score_v3": " 2.5 , 9.0 "})
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}
	want := ScoreRange{From: 2.5, To: 9.0}
	if params[0].Field != FieldCVSSScoreV3 || params[0].Range != want {
		t.Errorf("expected range %+v, got %+v", want, params[0])
	}

	// Degenerate single-point range is legal
	params, err = ParseParams(map[string]string{"cvss_score_v3": "0,0"})
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}
	if params[0].Range != (ScoreRange{}) {
		t.Errorf("expected zero range, got %+v", params[0].Range)
	}
}

func TestField_String(t *testing.T) {
	if got := FieldRepositoryName.String(); got != "repository_name" {
		t.Errorf("String() = %q", got)
	}
	if got := Field(99).String(); got != "field(99)" {
		t.Errorf("String() for unknown field = %q", got)
	}
}
