// Package query compiles filter predicates into Lucene query strings for
// the CKAN Solr index.
package query

import (
	"fmt"
	"strings"

	"github.com/rpattn/ckanbulk/internal/domain"
)

// Compiler turns filter items into query clauses for one entity type.
type Compiler struct {
	resolver *FieldResolver
}

// NewCompiler returns a compiler using resolver for field names. A nil
// resolver falls back to the dataset resolver.
func NewCompiler(resolver *FieldResolver) *Compiler {
	if resolver == nil {
		resolver = DatasetResolver()
	}
	return &Compiler{resolver: resolver}
}

// Compile returns the clause for a single filter.
func (c *Compiler) Compile(filter domain.FilterItem) (string, error) {
	field := c.resolver.Resolve(filter.Field)
	value := filter.Value

	switch filter.Operator {
	case domain.OperatorIs:
		return field + ":" + quotePhrase(value), nil
	case domain.OperatorIsNot:
		return "-" + field + ":" + quotePhrase(value), nil
	case domain.OperatorContains:
		return WordClause(field, value, false), nil
	case domain.OperatorDoesNotContain:
		return WordClause(field, value, true), nil
	case domain.OperatorStartsWith:
		return field + ":" + EscapeTerm(value) + "*", nil
	case domain.OperatorEndsWith:
		return field + ":*" + EscapeTerm(value), nil
	case domain.OperatorIsEmpty:
		return "(*:* AND -" + field + ":*)", nil
	case domain.OperatorIsNotEmpty:
		return field + ":*", nil
	default:
		return "", fmt.Errorf("field %q: %w: %q", filter.Field, domain.ErrUnknownOperator, filter.Operator)
	}
}

// Assemble compiles every filter, joins the clauses with op and restricts
// the result to entityType. An empty filter list yields an empty group,
// which matches every entity of the type.
func (c *Compiler) Assemble(entityType string, filters []domain.FilterItem, op domain.GlobalOperator) (string, error) {
	if op == "" {
		op = domain.GlobalAnd
	}
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidGlobalOperator, op)
	}

	clauses := make([]string, 0, len(filters))
	for _, filter := range filters {
		clause, err := c.Compile(filter)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	return TypeClause(entityType) + " AND (" + strings.Join(clauses, " "+string(op)+" ") + ")", nil
}

// TypeClause restricts a query to one entity type.
func TypeClause(entityType string) string {
	return `type:"` + strings.ReplaceAll(entityType, `"`, `\"`) + `"`
}

// WordClause matches every whitespace separated word of value in field.
// Negation applies to the whole group: the result matches entities that do
// not contain all of the words, not entities that contain none of them.
// An empty value matches any entity that has the field at all.
func WordClause(field, value string, negate bool) string {
	words := strings.Fields(value)
	if len(words) == 0 {
		if negate {
			return "-" + field + ":*"
		}
		return field + ":*"
	}

	clauses := make([]string, len(words))
	for i, word := range words {
		clauses[i] = field + ":" + EscapeTerm(word)
	}

	if len(clauses) == 1 {
		if negate {
			return "-" + clauses[0]
		}
		return clauses[0]
	}

	combined := "(" + strings.Join(clauses, " AND ") + ")"
	if negate {
		return "-" + combined
	}
	return combined
}
