package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestEntityRecordPreservesBackendKeyOrder(t *testing.T) {
	raw := `{"name":"a","id":"123","title":"Alpha","extras_theme":"x","num_resources":3}`

	var record EntityRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"name", "id", "title", "extras_theme", "num_resources"}
	if !reflect.DeepEqual(record.Keys(), want) {
		t.Fatalf("expected keys %v, got %v", want, record.Keys())
	}
	if record.ID() != "123" {
		t.Fatalf("expected id 123, got %q", record.ID())
	}
	if n, _ := record.Get("num_resources"); n != json.Number("3") {
		t.Fatalf("expected json.Number 3, got %#v", n)
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != raw {
		t.Fatalf("expected round trip %s, got %s", raw, encoded)
	}
}

func TestEntityRecordSetKeepsFirstPosition(t *testing.T) {
	record := NewEntityRecord("id", "1", "title", "old")
	record.Set("title", "new")
	record.Set("notes", "n")

	if !reflect.DeepEqual(record.Keys(), []string{"id", "title", "notes"}) {
		t.Fatalf("unexpected keys %v", record.Keys())
	}
	if v, _ := record.Get("title"); v != "new" {
		t.Fatalf("expected replaced value, got %v", v)
	}
}

func TestEntityRecordRejectsNonObject(t *testing.T) {
	var record EntityRecord
	if err := json.Unmarshal([]byte(`["a"]`), &record); err == nil {
		t.Fatalf("expected error for array payload")
	}
}

func TestEntityRecordSliceDecode(t *testing.T) {
	var records []EntityRecord
	if err := json.Unmarshal([]byte(`[{"id":"1"},{"id":"2","tags":[{"name":"x"}]}]`), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 2 || records[1].ID() != "2" {
		t.Fatalf("unexpected records %#v", records)
	}
	if id, ok := records[0].Get("id"); !ok || id != "1" {
		t.Fatalf("expected first record to carry id 1, got %v", id)
	}
}

func TestBackendErrorUnwrapAndIdempotentWrap(t *testing.T) {
	base := errors.New("connection refused")
	err := NewBackendError("package_search", base)

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %T", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match base")
	}
	if again := NewBackendError("other", err); again != err {
		t.Fatalf("expected existing BackendError to be returned unchanged")
	}
	if NewBackendError("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
