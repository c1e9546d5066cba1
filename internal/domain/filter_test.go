package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseOperatorAcceptsWireAndConstantForms(t *testing.T) {
	cases := map[string]Operator{
		"is":               OperatorIs,
		"IS_NOT":           OperatorIsNot,
		" contains ":       OperatorContains,
		"Does_Not_Contain": OperatorDoesNotContain,
		"starts_with":      OperatorStartsWith,
		"ENDS_WITH":        OperatorEndsWith,
		"is_empty":         OperatorIsEmpty,
		"is_not_empty":     OperatorIsNotEmpty,
	}
	for raw, want := range cases {
		got, err := ParseOperator(raw)
		if err != nil {
			t.Fatalf("ParseOperator(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseOperator(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseOperatorRejectsUnknown(t *testing.T) {
	if _, err := ParseOperator("greater_than"); !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
}

func TestParseGlobalOperator(t *testing.T) {
	for raw, want := range map[string]GlobalOperator{"": GlobalAnd, "and": GlobalAnd, "OR": GlobalOr} {
		got, err := ParseGlobalOperator(raw)
		if err != nil {
			t.Fatalf("ParseGlobalOperator(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseGlobalOperator(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseGlobalOperator("XOR"); !errors.Is(err, ErrInvalidGlobalOperator) {
		t.Fatalf("expected ErrInvalidGlobalOperator, got %v", err)
	}
}

func TestOperatorOptionsCoverEveryOperator(t *testing.T) {
	options := OperatorOptions()
	if len(options) != len(AllOperators()) {
		t.Fatalf("expected %d options, got %d", len(AllOperators()), len(options))
	}
	if options[1].Value != OperatorIsNot || options[1].Text != "Is not" {
		t.Fatalf("unexpected option %#v", options[1])
	}
}

func TestSearchFiltersNormalizeDropsBlankRows(t *testing.T) {
	in := SearchFilters{
		EntityType: " dataset ",
		Filters: []FilterItem{
			{Field: "author", Operator: "IS", Value: "Alex"},
			{},
			{Field: "  ", Operator: " ", Value: "  "},
			{Field: "notes", Operator: OperatorIsEmpty, Value: "stale"},
		},
	}

	out, err := in.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out.EntityType != "dataset" {
		t.Fatalf("expected trimmed entity type, got %q", out.EntityType)
	}
	if out.GlobalOperator != GlobalAnd {
		t.Fatalf("expected default AND, got %q", out.GlobalOperator)
	}
	want := []FilterItem{
		{Field: "author", Operator: OperatorIs, Value: "Alex"},
		{Field: "notes", Operator: OperatorIsEmpty},
	}
	if !reflect.DeepEqual(out.Filters, want) {
		t.Fatalf("unexpected filters %#v", out.Filters)
	}
}

func TestSearchFiltersNormalizeRejectsPartialRows(t *testing.T) {
	partial := map[string]FilterItem{
		"missing field":    {Operator: OperatorIs, Value: "Alex"},
		"missing operator": {Field: "title", Value: "water"},
		"field only":       {Field: "title"},
		"value only":       {Value: "water"},
	}
	for name, row := range partial {
		t.Run(name, func(t *testing.T) {
			in := SearchFilters{EntityType: "dataset", Filters: []FilterItem{row}}
			if _, err := in.Normalize(); !errors.Is(err, ErrInvalidFilter) {
				t.Fatalf("expected ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestOperatorNeedsValue(t *testing.T) {
	for _, op := range AllOperators() {
		want := op != OperatorIsEmpty && op != OperatorIsNotEmpty
		if op.NeedsValue() != want {
			t.Fatalf("%s: NeedsValue() = %t", op, op.NeedsValue())
		}
	}
}

func TestSearchFiltersNormalizeRejectsUnknownOperator(t *testing.T) {
	in := SearchFilters{EntityType: "dataset", Filters: []FilterItem{{Field: "title", Operator: "near"}}}
	_, err := in.Normalize()
	if !errors.Is(err, ErrInvalidFilter) || !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("expected invalid filter wrapping unknown operator, got %v", err)
	}
}

func TestFilterItemValidate(t *testing.T) {
	if err := (FilterItem{Field: "title", Operator: OperatorContains}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (FilterItem{Field: " ", Operator: OperatorContains}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for blank field, got %v", err)
	}
	if err := (FilterItem{Field: "title", Operator: "like"}).Validate(); !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
}

func TestSearchFiltersDecodeFromFormPayload(t *testing.T) {
	payload := `{"entity_type":"dataset","global_operator":"OR","filters":[{"field":"author","operator":"is","value":"Alex"}]}`
	var sf SearchFilters
	if err := json.Unmarshal([]byte(payload), &sf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sf.GlobalOperator != GlobalOr || len(sf.Filters) != 1 || sf.Filters[0].Operator != OperatorIs {
		t.Fatalf("unexpected decode result %#v", sf)
	}
}
