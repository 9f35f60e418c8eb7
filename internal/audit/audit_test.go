package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedFieldsExcludesTimestamps(t *testing.T) {
	before := Snapshot{"name": "A", "createdAt": 1, "version": 1}
	after := Snapshot{"name": "B", "createdAt": 2, "version": 2}

	assert.Equal(t, []string{"name"}, ChangedFields(before, after))
}

func TestChangedFieldsNilSide(t *testing.T) {
	snap := Snapshot{"name": "A"}

	assert.Empty(t, ChangedFields(nil, snap))
	assert.Empty(t, ChangedFields(snap, nil))
	assert.NotNil(t, ChangedFields(nil, nil))
}

func TestChangedFieldsUnionAndNested(t *testing.T) {
	before := Snapshot{
		"name":        "Kopi",
		"permissions": []any{"sales", "dashboard"},
		"meta":        map[string]any{"a": 1.0, "b": 2.0},
		"legacy":      true,
		"updated_at":  "x",
	}
	after := Snapshot{
		"name":        "Kopi",
		"permissions": []any{"sales", "dashboard", "reports"},
		"meta":        map[string]any{"b": 2.0, "a": 1.0},
		"unit":        "pcs",
		"updated_at":  "y",
	}

	assert.Equal(t, []string{"legacy", "permissions", "unit"}, ChangedFields(before, after))
}

func TestTakeUsesJSONShape(t *testing.T) {
	type product struct {
		Name      string    `json:"name"`
		Price     int64     `json:"price"`
		CreatedAt time.Time `json:"created_at"`
	}
	before, err := Take(product{Name: "Teh", Price: 3000, CreatedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	after, err := Take(&product{Name: "Teh", Price: 3500, CreatedAt: time.Unix(2, 0)})
	require.NoError(t, err)

	assert.Equal(t, "Teh", before["name"])
	assert.Equal(t, []string{"price"}, ChangedFields(before, after))

	var missing *product
	snap, err := Take(missing)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestDecode(t *testing.T) {
	snap, err := Decode([]byte(`{"name":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, "A", snap["name"])

	snap, err = Decode([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, snap)

	snap, err = Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, snap)
}
