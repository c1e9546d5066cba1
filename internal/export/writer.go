// Package export renders entity result sets as CSV or XLSX files.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/ckanbulk/internal/domain"
)

// ErrUnsupportedFormat is returned for formats other than csv and xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Entities"

// ParseFormat accepts csv or xlsx in any case. Blank means csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName builds a download name such as dataset-<id>.csv.
func FileName(entityType string, format Format) string {
	base := sanitizeFileComponent(entityType)
	if base == "" {
		base = "entity-export"
	}
	return fmt.Sprintf("%s-%s.%s", base, uuid.New().String(), format)
}

// Columns is the union of record keys in the order they are first seen.
func Columns(records []domain.EntityRecord) []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0)
	for _, record := range records {
		for _, key := range record.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// Write renders records to w in format. It returns the number of data rows
// written.
func Write(w io.Writer, format Format, records []domain.EntityRecord) (int, error) {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func WriteCSV(w io.Writer, records []domain.EntityRecord) (int, error) {
	buffered := bufio.NewWriterSize(w, 1<<16)
	csvWriter := csv.NewWriter(buffered)

	headers := Columns(records)
	if len(headers) > 0 {
		if err := csvWriter.Write(headers); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	row := make([]string, len(headers))
	written := 0
	for _, record := range records {
		for i, column := range headers {
			value, _ := record.Get(column)
			row[i] = formatValue(value)
		}
		if err := csvWriter.Write(row); err != nil {
			return written, fmt.Errorf("write row %d: %w", written+1, err)
		}
		written++
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return written, fmt.Errorf("flush csv: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return written, fmt.Errorf("flush output: %w", err)
	}
	return written, nil
}

func WriteXLSX(w io.Writer, records []domain.EntityRecord) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, fmt.Errorf("open sheet writer: %w", err)
	}

	headers := Columns(records)
	if len(headers) > 0 {
		header := make([]any, len(headers))
		for i, column := range headers {
			header[i] = column
		}
		if err := stream.SetRow("A1", header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	written := 0
	for _, record := range records {
		row := make([]any, len(headers))
		for i, column := range headers {
			value, _ := record.Get(column)
			row[i] = formatValue(value)
		}
		cell, err := excelize.CoordinatesToCellName(1, written+2)
		if err != nil {
			return written, err
		}
		if err := stream.SetRow(cell, row); err != nil {
			return written, fmt.Errorf("write row %d: %w", written+1, err)
		}
		written++
	}

	if err := stream.Flush(); err != nil {
		return written, fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return written, fmt.Errorf("write workbook: %w", err)
	}
	return written, nil
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	case float32, float64, int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%v", v)
	case []byte:
		return string(v)
	case map[string]any, []any, domain.EntityRecord:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	return strings.Trim(builder.String(), "-")
}
