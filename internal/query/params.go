package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ning0612/Regsync/internal/domain"
)

// Field is the closed set of filter fields accepted from automation
// clients. The wire names are fixed for compatibility; internally each
// field carries a strongly typed value and is dispatched by switch, not
// by property-string lookup.
type Field int

const (
	FieldProjectID Field = iota
	FieldRepositoryName
	FieldDigest
	FieldCVEID
	FieldPackage
	FieldTag
	FieldCVSSScoreV3
	FieldSeverity
)

// fieldNames maps the wire names onto the closed field set
var fieldNames = map[string]Field{
	"project_id":      FieldProjectID,
	"repository_name": FieldRepositoryName,
	"digest":          FieldDigest,
	"cve_id":          FieldCVEID,
	"package":         FieldPackage,
	"tag":             FieldTag,
	"cvss_score_v3":   FieldCVSSScoreV3,
	"severity":        FieldSeverity,
}

// String returns the wire name of the field
func (f Field) String() string {
	for name, field := range fieldNames {
		if field == f {
			return name
		}
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ScoreRange is an inclusive CVSS v3 score interval
type ScoreRange struct {
	From float64
	To   float64
}

// Param is one parsed filter parameter: a field plus its typed value.
// Exactly one of Text and Range is meaningful, selected by the field.
type Param struct {
	Field Field
	Text  string
	Range ScoreRange
}

// severities the external vulnerability collaborator understands
var knownSeverities = map[string]bool{
	"critical":   true,
	"high":       true,
	"medium":     true,
	"low":        true,
	"negligible": true,
	"unknown":    true,
}

// ParseParams validates raw string filter parameters into typed params.
// Unknown field names and malformed values fail fast with
// domain.ErrValidation rather than silently matching nothing.
func ParseParams(raw map[string]string) ([]Param, error) {
	var params []Param
	for name, value := range raw {
		field, ok := fieldNames[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter field %q", domain.ErrValidation, name)
		}

		switch field {
		case FieldCVSSScoreV3:
			rng, err := parseScoreRange(value)
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Field: field, Range: rng})

		case FieldSeverity:
			if !knownSeverities[strings.ToLower(value)] {
				return nil, fmt.Errorf("%w: unknown severity %q", domain.ErrValidation, value)
			}
			params = append(params, Param{Field: field, Text: strings.ToLower(value)})

		default:
			if value == "" {
				return nil, fmt.Errorf("%w: empty value for filter field %q", domain.ErrValidation, name)
			}
			params = append(params, Param{Field: field, Text: value})
		}
	}
	return params, nil
}

// parseScoreRange parses "from,to" with both bounds in [0,10]
func parseScoreRange(value string) (ScoreRange, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return ScoreRange{}, fmt.Errorf("%w: cvss_score_v3 expects \"from,to\", got %q", domain.ErrValidation, value)
	}

	from, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return ScoreRange{}, fmt.Errorf("%w: non-numeric cvss_score_v3 lower bound %q", domain.ErrValidation, parts[0])
	}
	to, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return ScoreRange{}, fmt.Errorf("%w: non-numeric cvss_score_v3 upper bound %q", domain.ErrValidation, parts[1])
	}

	if from < 0 || to > 10 || from > to {
		return ScoreRange{}, fmt.Errorf("%w: cvss_score_v3 range %g-%g out of order or outside [0,10]", domain.ErrValidation, from, to)
	}
	return ScoreRange{From: from, To: to}, nil
}
