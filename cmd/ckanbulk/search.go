package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/export"
)

// parseFilter reads field:operator[:value]. The value may itself contain
// colons.
func parseFilter(raw string) (domain.FilterItem, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return domain.FilterItem{}, fmt.Errorf("%w: %q is not field:operator[:value]", domain.ErrInvalidFilter, raw)
	}
	op, err := domain.ParseOperator(parts[1])
	if err != nil {
		return domain.FilterItem{}, fmt.Errorf("%w: %q: %w", domain.ErrInvalidFilter, raw, err)
	}
	item := domain.FilterItem{Field: strings.TrimSpace(parts[0]), Operator: op}
	if len(parts) == 3 {
		item.Value = parts[2]
	}
	return item, item.Validate()
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", "dataset", "entity type")
	cmd.Flags().StringArrayP("filter", "f", nil, "filter as field:operator[:value], repeatable")
	cmd.Flags().Bool("any", false, "match any filter instead of all")
}

func filtersFromFlags(cmd *cobra.Command) (domain.SearchFilters, error) {
	entityType, _ := cmd.Flags().GetString("type")
	rawFilters, _ := cmd.Flags().GetStringArray("filter")
	anyMatch, _ := cmd.Flags().GetBool("any")

	sf := domain.SearchFilters{EntityType: entityType, GlobalOperator: domain.GlobalAnd}
	if anyMatch {
		sf.GlobalOperator = domain.GlobalOr
	}
	for _, raw := range rawFilters {
		item, err := parseFilter(raw)
		if err != nil {
			return domain.SearchFilters{}, err
		}
		sf.Filters = append(sf.Filters, item)
	}
	return sf, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Fetch every entity matching the filters as JSON",
		Example: `  ckanbulk search -f title:contains:water -f notes:is_not_empty
  ckanbulk search --any -f state:is:active -f theme:is:health --query-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := filtersFromFlags(cmd)
			if err != nil {
				return err
			}
			service, cleanup, err := a.buildService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if queryOnly, _ := cmd.Flags().GetBool("query-only"); queryOnly {
				q, err := service.BuildQuery(sf)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), q)
				return err
			}

			result, err := service.SearchEntities(cmd.Context(), sf)
			if err != nil {
				return err
			}
			if expand, _ := cmd.Flags().GetBool("expand"); expand {
				expanded, err := service.Expand(cmd.Context(), sf.EntityType, result.Entities)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), expanded)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Bool("query-only", false, "print the compiled query without searching")
	cmd.Flags().Bool("expand", false, "re-fetch the first entities in full")
	return cmd
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields [entity-type]",
		Short: "List the fields available for filtering",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType := "dataset"
			if len(args) == 1 {
				entityType = args[0]
			}
			service, cleanup, err := a.buildService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := service.Fields(cmd.Context(), entityType)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintln(cmd.OutOrStdout(), item.Value)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every entity matching the filters to a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := filtersFromFlags(cmd)
			if err != nil {
				return err
			}
			rawFormat, _ := cmd.Flags().GetString("format")
			format, err := export.ParseFormat(rawFormat)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = export.FileName(sf.EntityType, format)
			}

			service, cleanup, err := a.buildService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := service.SearchEntities(cmd.Context(), sf)
			if err != nil {
				return err
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			rows, err := export.Write(file, format, result.Entities)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}
			a.logger.Info("export written", "file", output, "rows", rows, "query", result.Query)
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().String("format", "csv", "csv or xlsx")
	cmd.Flags().StringP("output", "o", "", "output file (default: generated name)")
	return cmd
}
