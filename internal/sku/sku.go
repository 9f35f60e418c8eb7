// Package sku derives product codes of the form PREFIX-NNN from a product's
// category and the codes already in use.
package sku

import (
	"fmt"
	"strconv"
	"strings"

	"tokoagen/backend/internal/domain"
)

func normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstThree(letters string) string {
	if len(letters) > 3 {
		return letters[:3]
	}
	return letters
}

// Prefix returns the three-letter code for a category name. When another
// category in categories starts with the same three letters, a name with at
// least four letters uses letters one, two and four instead. Shorter names
// keep the colliding prefix.
func Prefix(name string, categories []domain.Category) string {
	letters := normalize(name)
	if len(letters) < 3 {
		return letters + strings.Repeat("X", 3-len(letters))
	}
	candidate := letters[:3]

	conflict := false
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			continue
		}
		if firstThree(normalize(c.Name)) == candidate {
			conflict = true
			break
		}
	}
	if !conflict || len(letters) < 4 {
		return candidate
	}
	return letters[:2] + letters[3:4]
}

// NextSequence returns one more than the highest numeric suffix among codes
// shaped PREFIX-<digits>, or 1 when there are none.
func NextSequence(prefix string, existing []string) int {
	head := prefix + "-"
	highest := 0
	for _, code := range existing {
		if !strings.HasPrefix(code, head) {
			continue
		}
		tail := code[len(head):]
		if tail == "" || strings.TrimLeft(tail, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(tail)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}

// Generate returns the next SKU for a product in categoryID, or "" when the
// category is unknown. The result depends only on its inputs.
func Generate(categoryID string, categories []domain.Category, existing []string) string {
	var category *domain.Category
	for i := range categories {
		if categories[i].ID == categoryID {
			category = &categories[i]
			break
		}
	}
	if category == nil {
		return ""
	}

	prefix := Prefix(category.Name, categories)
	return fmt.Sprintf("%s-%03d", prefix, NextSequence(prefix, existing))
}
