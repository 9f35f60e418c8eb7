// Package audit snapshots entities for the audit trail and reports which
// top-level fields differ between two snapshots.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot is a JSON-shaped copy of an entity's fields.
type Snapshot map[string]any

// bookkeepingFields change on every write and are never reported.
var bookkeepingFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"createdAt":  {},
	"updatedAt":  {},
	"version":    {},
}

// Take serializes v through its JSON encoding. A nil v yields a nil snapshot.
func Take(v any) (Snapshot, error) {
	if v == nil {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if bytes.Equal(payload, []byte("null")) {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("snapshot must be an object: %w", err)
	}
	return snap, nil
}

// Decode parses a stored snapshot; empty or null input yields nil.
func Decode(raw []byte) (Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ChangedFields returns the sorted top-level keys whose values differ between
// before and after. Timestamps and the version counter are never reported,
// and a nil side (pure create or delete) yields an empty result.
func ChangedFields(before Snapshot, after Snapshot) []string {
	changed := []string{}
	if before == nil || after == nil {
		return changed
	}

	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	for k := range keys {
		if _, skip := bookkeepingFields[k]; skip {
			continue
		}
		b, inBefore := before[k]
		a, inAfter := after[k]
		if inBefore != inAfter || !sameValue(b, a) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// sameValue compares canonical JSON; encoding/json sorts map keys, so nested
// objects compare by content.
func sameValue(a any, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(left, right)
}
