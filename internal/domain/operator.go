package domain

import (
	"fmt"
	"strings"
)

// Operator is the comparison applied by a single filter predicate.
type Operator string

const (
	OperatorIs             Operator = "is"
	OperatorIsNot          Operator = "is_not"
	OperatorContains       Operator = "contains"
	OperatorDoesNotContain Operator = "does_not_contain"
	OperatorStartsWith     Operator = "starts_with"
	OperatorEndsWith       Operator = "ends_with"
	OperatorIsEmpty        Operator = "is_empty"
	OperatorIsNotEmpty     Operator = "is_not_empty"
)

var operatorLabels = map[Operator]string{
	OperatorIs:             "Is",
	OperatorIsNot:          "Is not",
	OperatorContains:       "Contains",
	OperatorDoesNotContain: "Does not contain",
	OperatorStartsWith:     "Starts with",
	OperatorEndsWith:       "Ends with",
	OperatorIsEmpty:        "Is empty",
	OperatorIsNotEmpty:     "Is not empty",
}

// AllOperators returns every supported operator in display order.
func AllOperators() []Operator {
	return []Operator{
		OperatorIs,
		OperatorIsNot,
		OperatorContains,
		OperatorDoesNotContain,
		OperatorStartsWith,
		OperatorEndsWith,
		OperatorIsEmpty,
		OperatorIsNotEmpty,
	}
}

// Valid reports whether o is one of the supported operators.
func (o Operator) Valid() bool {
	_, ok := operatorLabels[o]
	return ok
}

// Label returns the human readable name shown in the filter builder.
func (o Operator) Label() string {
	if label, ok := operatorLabels[o]; ok {
		return label
	}
	return string(o)
}

// NeedsValue reports whether the operator reads the filter value at all.
func (o Operator) NeedsValue() bool {
	return o != OperatorIsEmpty && o != OperatorIsNotEmpty
}

// ParseOperator accepts both the wire form ("is_not") and the constant
// name form ("IS_NOT").
func ParseOperator(raw string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(raw)))
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, raw)
	}
	return op, nil
}

// OperatorOption is a selectable operator entry for the filter builder.
type OperatorOption struct {
	Value Operator `json:"value"`
	Text  string   `json:"text"`
}

// OperatorOptions lists every operator with its label.
func OperatorOptions() []OperatorOption {
	ops := AllOperators()
	options := make([]OperatorOption, len(ops))
	for i, op := range ops {
		options[i] = OperatorOption{Value: op, Text: op.Label()}
	}
	return options
}

// GlobalOperator joins the compiled predicates of one search.
type GlobalOperator string

const (
	GlobalAnd GlobalOperator = "AND"
	GlobalOr  GlobalOperator = "OR"
)

// ParseGlobalOperator defaults blank input to AND.
func ParseGlobalOperator(raw string) (GlobalOperator, error) {
	switch GlobalOperator(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", GlobalAnd:
		return GlobalAnd, nil
	case GlobalOr:
		return GlobalOr, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGlobalOperator, raw)
	}
}

// Valid reports whether g is AND or OR.
func (g GlobalOperator) Valid() bool {
	return g == GlobalAnd || g == GlobalOr
}
