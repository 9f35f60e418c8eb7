package sku

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tokoagen/backend/internal/domain"
)

func categories(names ...string) []domain.Category {
	out := make([]domain.Category, 0, len(names))
	for i, name := range names {
		out = append(out, domain.Category{ID: string(rune('a' + i)), Name: name})
	}
	return out
}

func TestGenerateWithoutConflict(t *testing.T) {
	cats := categories("Alat Tulis", "Minuman")

	assert.Equal(t, "ALA-001", Generate("a", cats, nil))
	assert.Equal(t, "MIN-001", Generate("b", cats, nil))
}

func TestGenerateIsDeterministic(t *testing.T) {
	cats := categories("Alat Tulis", "Minuman")
	existing := []string{"ALA-001", "MIN-004"}

	assert.Equal(t, Generate("a", cats, existing), Generate("a", cats, existing))
}

func TestGenerateSequenceIgnoresGaps(t *testing.T) {
	cats := categories("Alat Tulis")
	existing := []string{"ALA-001", "ALA-002", "ALA-005", "MIN-010", "ALA-X01", "ALAS-009"}

	assert.Equal(t, "ALA-006", Generate("a", cats, existing))
}

func TestGenerateWidthGrowsPastThreeDigits(t *testing.T) {
	cats := categories("Minuman")

	assert.Equal(t, "MIN-1000", Generate("a", cats, []string{"MIN-999"}))
}

func TestGenerateConflictSkipsThirdLetter(t *testing.T) {
	cats := categories("Kertas", "Kerupuk")

	assert.Equal(t, "KEU-001", Generate("b", cats, nil))
	assert.Equal(t, "KET-001", Generate("a", cats, nil))
}

func TestGenerateUnknownCategory(t *testing.T) {
	assert.Equal(t, "", Generate("missing", categories("Minuman"), nil))
}

func TestPrefixShortNames(t *testing.T) {
	assert.Equal(t, "ABX", Prefix("a-b", nil))
	assert.Equal(t, "XXX", Prefix("123", nil))

	// a three-letter name cannot skip its third letter, so the collision stays
	cats := categories("Tas", "Tasbih")
	assert.Equal(t, "TAS", Prefix("Tas", cats))
	assert.Equal(t, "TAB", Prefix("Tasbih", cats))
}

func TestPrefixIgnoresSameNamedCategory(t *testing.T) {
	cats := categories("Minuman", "minuman ")

	assert.Equal(t, "MIN", Prefix("Minuman", cats))
}
