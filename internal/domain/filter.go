package domain

import (
	"fmt"
	"strings"
)

// FilterItem is one user supplied predicate.
type FilterItem struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Validate rejects blank fields and operators outside the supported set.
func (f FilterItem) Validate() error {
	if strings.TrimSpace(f.Field) == "" {
		return fmt.Errorf("%w: field is required", ErrInvalidFilter)
	}
	if !f.Operator.Valid() {
		return fmt.Errorf("%w: field %q: %w", ErrInvalidFilter, f.Field, ErrUnknownOperator)
	}
	return nil
}

// FieldItem is a selectable field in the filter builder.
type FieldItem struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// SearchFilters is a single search submission from the filter builder.
type SearchFilters struct {
	EntityType     string         `json:"entity_type"`
	Filters        []FilterItem   `json:"filters"`
	GlobalOperator GlobalOperator `json:"global_operator"`
}

// Normalize trims the submission, drops rows that are entirely blank and
// defaults the global operator. A row with only some of field, operator and
// value filled in is rejected with ErrInvalidFilter. The operator of every
// kept row is parsed, so unknown operators surface here rather than at
// compile time. Values of operators that read none are cleared.
func (s SearchFilters) Normalize() (SearchFilters, error) {
	out := SearchFilters{
		EntityType: strings.TrimSpace(s.EntityType),
		Filters:    make([]FilterItem, 0, len(s.Filters)),
	}

	op, err := ParseGlobalOperator(string(s.GlobalOperator))
	if err != nil {
		return SearchFilters{}, err
	}
	out.GlobalOperator = op

	for i, f := range s.Filters {
		field := strings.TrimSpace(f.Field)
		rawOp := strings.TrimSpace(string(f.Operator))
		if field == "" && rawOp == "" && strings.TrimSpace(f.Value) == "" {
			continue
		}
		if field == "" || rawOp == "" {
			return SearchFilters{}, fmt.Errorf("%w: row %d: field and operator are required", ErrInvalidFilter, i+1)
		}
		parsed, err := ParseOperator(rawOp)
		if err != nil {
			return SearchFilters{}, fmt.Errorf("%w: field %q: %w", ErrInvalidFilter, field, err)
		}
		item := FilterItem{Field: field, Operator: parsed, Value: f.Value}
		if !parsed.NeedsValue() {
			item.Value = ""
		}
		out.Filters = append(out.Filters, item)
	}

	return out, nil
}
