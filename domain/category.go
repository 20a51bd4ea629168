package domain

import (
	"fmt"
	"strings"
)

// Category is a post tag from a closed set
type Category string

const (
	CategoryMemeArtesanal Category = "MEME_ARTESANAL"
	CategoryDiamante      Category = "DIAMANTE"
	CategoryRana          Category = "RANA"
	CategoryOro           Category = "ORO"
	CategorySinSonido     Category = "SIN_SONIDO"
	CategoryNoSeYo        Category = "NO_SE_YO"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryMemeArtesanal,
	CategoryDiamante,
	CategoryRana,
	CategoryOro,
	CategorySinSonido,
	CategoryNoSeYo,
}

var categoryNames = map[Category]string{
	CategoryMemeArtesanal: "Meme artesanal",
	CategoryDiamante:      "Diamante",
	CategoryRana:          "Rana",
	CategoryOro:           "Oro",
	CategorySinSonido:     "Sin sonido",
	CategoryNoSeYo:        "No sé yo",
}

// uniqueCategories is restricted to 1 per post.
var uniqueCategories = map[Category]bool{
	CategoryDiamante: true,
	CategoryOro:      true,
	CategoryRana:     true,
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Unique reports whether c belongs to the mutually exclusive group.
func (c Category) Unique() bool {
	return uniqueCategories[c]
}

func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseCategory maps a raw value to a known Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrBadParamInput, s)
	}
	return c, nil
}

// NormalizeCategories drops duplicates keeping first occurrence order and rejects
// unknown values and unique conflicts.
func NormalizeCategories(cats []Category) ([]Category, error) {
	res := make([]Category, 0, len(cats))
	seen := make(map[Category]bool, len(cats))
	for _, c := range cats {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrBadParamInput, string(c))
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		res = append(res, c)
	}
	if err := ValidateUniqueCategories(res); err != nil {
		return nil, err
	}
	return res, nil
}

// ValidateUniqueCategories fails with a CategoryConflictError when more than one
// category of the unique group is present.
func ValidateUniqueCategories(cats []Category) error {
	var conflicting []Category
	for _, c := range cats {
		if c.Unique() {
			conflicting = append(conflicting, c)
		}
	}
	if len(conflicting) > 1 {
		return &CategoryConflictError{Categories: conflicting}
	}
	return nil
}

// JoinWithAnd renders "a", "a and b", "a, b and c".
func JoinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
