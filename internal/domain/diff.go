package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ComputeDiff compares an entity's current field map against a proposed
// update and returns the field-level change set, ordered by the allow-list.
// Fields absent from the allow-list are silently dropped. A field produces
// a change only when its new value is not structurally equal to the old
// one. When the filtered, changed set is empty the diff fails with
// ErrEmptyUpdate.
//
// The returned entries carry no updater stamp; the ledger layer stamps
// UpdatedBy/UpdatedAt before merging.
func ComputeDiff(current, proposed map[string]any, allowed []string) ([]FieldChange, error) {
	batch := make([]FieldChange, 0, len(proposed))
	for _, field := range allowed {
		value, ok := proposed[field]
		if !ok {
			continue
		}
		if EqualValues(current[field], value) {
			continue
		}
		batch = append(batch, FieldChange{
			Field:    field,
			OldValue: current[field],
			NewValue: value,
		})
	}
	if len(batch) == 0 {
		return nil, ErrEmptyUpdate
	}
	return batch, nil
}

// EqualValues reports structural equality between two field values. Both
// sides are normalized through their canonical JSON form first, so
// equal-valued maps and slices compare equal regardless of in-memory
// representation or key order, and numeric types compare by value.
func EqualValues(a, b any) bool {
	na, err := normalizeValue(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	nb, err := normalizeValue(b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

func normalizeValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not canonicalizable: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
