package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"

	"github.com/rpattn/ckanbulk/internal/domain"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.FilterItem
		wantErr error
	}{
		{raw: "title:contains:water", want: domain.FilterItem{Field: "title", Operator: domain.OperatorContains, Value: "water"}},
		{raw: "url:starts_with:https://data", want: domain.FilterItem{Field: "url", Operator: domain.OperatorStartsWith, Value: "https://data"}},
		{raw: "notes:IS_EMPTY", want: domain.FilterItem{Field: "notes", Operator: domain.OperatorIsEmpty}},
		{raw: "title", wantErr: domain.ErrInvalidFilter},
		{raw: "title:near:x", wantErr: domain.ErrUnknownOperator},
		{raw: ":is:x", wantErr: domain.ErrInvalidFilter},
	}

	for _, tt := range tests {
		got, err := parseFilter(tt.raw)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("%q: expected %v, got %v", tt.raw, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %+v, got %+v", tt.raw, tt.want, got)
		}
	}
}

func TestFiltersFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "search"}
	addFilterFlags(cmd)
	if err := cmd.ParseFlags([]string{"--any", "-f", "title:is:Rivers", "-f", "theme:is_not_empty"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	sf, err := filtersFromFlags(cmd)
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	if sf.EntityType != "dataset" || sf.GlobalOperator != domain.GlobalOr {
		t.Fatalf("unexpected submission %+v", sf)
	}
	if len(sf.Filters) != 2 || sf.Filters[1].Operator != domain.OperatorIsNotEmpty {
		t.Fatalf("unexpected filters %+v", sf.Filters)
	}
}
