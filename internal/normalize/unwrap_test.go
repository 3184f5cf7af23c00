package normalize

import "testing"

func TestUnwrapEnvelopeKeepsMetadata(t *testing.T) {
	raw := map[string]any{
		"data":          []any{map[string]any{"id": float64(1)}, map[string]any{"id": float64(2)}},
		"pageNumber":    float64(2),
		"pageSize":      float64(10),
		"totalElements": float64(42),
		"totalPages":    float64(5),
		"last":          false,
	}

	col := Unwrap(raw, 0, 0)

	if len(col.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(col.Items))
	}
	if col.Meta.PageNumber != 2 || col.Meta.PageSize != 10 || col.Meta.TotalElements != 42 || col.Meta.TotalPages != 5 {
		t.Errorf("metadata changed: %+v", col.Meta)
	}
	if col.Meta.Last {
		t.Errorf("expected last=false to pass through")
	}
	if col.Meta.First {
		t.Errorf("expected first == (pageNumber == 0), got first=true on page 2")
	}
}

func TestUnwrapEnvelopeFirstPage(t *testing.T) {
	raw := map[string]any{
		"data":          []any{},
		"pageNumber":    float64(0),
		"pageSize":      float64(15),
		"totalElements": float64(0),
		"totalPages":    float64(0),
		"last":          true,
	}
	col := Unwrap(raw, 0, 15)
	if !col.Meta.First {
		t.Errorf("expected first=true on page 0")
	}
}

func TestUnwrapEnvelopeDerivesMissingFields(t *testing.T) {
	raw := map[string]any{
		"data":          []any{map[string]any{}, map[string]any{}},
		"pageNumber":    float64(1),
		"totalElements": float64(31),
	}

	col := Unwrap(raw, 1, 0)

	// pageSize falls back to 15, totalPages = ceil(31/15) = 3.
	if col.Meta.PageSize != DefaultPageSize {
		t.Errorf("pageSize = %d, want %d", col.Meta.PageSize, DefaultPageSize)
	}
	if col.Meta.TotalPages != 3 {
		t.Errorf("totalPages = %d, want 3", col.Meta.TotalPages)
	}
	if col.Meta.Last {
		t.Errorf("page 1 of 3 must not be last")
	}
}

func TestUnwrapBareArray(t *testing.T) {
	raw := []any{map[string]any{"id": float64(1)}, map[string]any{"id": float64(2)}, map[string]any{"id": float64(3)}}

	col := Unwrap(raw, 0, 0)

	if col.Meta.TotalElements != 3 {
		t.Errorf("totalElements = %d, want 3", col.Meta.TotalElements)
	}
	if col.Meta.TotalPages != 1 {
		t.Errorf("totalPages = %d, want 1", col.Meta.TotalPages)
	}
	if !col.Meta.First || !col.Meta.Last {
		t.Errorf("expected first == last == true, got %+v", col.Meta)
	}
}

func TestUnwrapBareArrayNonZeroPage(t *testing.T) {
	col := Unwrap([]any{map[string]any{}}, 2, 15)
	if col.Meta.First {
		t.Errorf("requested page 2 cannot be first")
	}
	if !col.Meta.Last {
		t.Errorf("legacy array response is always the last knowable page")
	}
}

func TestUnwrapUnrecognizedShape(t *testing.T) {
	for _, raw := range []any{nil, "oops", float64(7), map[string]any{"message": "accepted"}} {
		col := Unwrap(raw, 0, 15)
		if len(col.Items) != 0 {
			t.Errorf("expected empty page for %v", raw)
		}
		if col.Meta.TotalElements != 0 || col.Meta.TotalPages != 0 {
			t.Errorf("expected zero counts for %v, got %+v", raw, col.Meta)
		}
		if !col.Meta.First || !col.Meta.Last {
			t.Errorf("expected first == last == true for %v", raw)
		}
	}
}
