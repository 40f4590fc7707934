package constants

import (
	"strings"
)

type Category string

const (
	Documents   Category = "Documents"
	Electronics Category = "Electronics"
	Jewelry     Category = "Jewelry"
	Clothing    Category = "Clothing"
	BagsWallets Category = "BagsWallets"
	Keys        Category = "Keys"
	Phones      Category = "Phones"
	Pets        Category = "Pets"
	Other       Category = "Other"
)

var allCategories = []Category{
	Documents,
	Electronics,
	Jewelry,
	Clothing,
	BagsWallets,
	Keys,
	Phones,
	Pets,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form category text (user input or model output)
// onto the closed enum. Returns Other and false when nothing matches.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"laptop":     Electronics,
		"tablet":     Electronics,
		"headphones": Electronics,
		"earbuds":    Electronics,
		"camera":     Electronics,
		"passport":   Documents,
		"license":    Documents,
		"id card":    Documents,
		"wallet":     BagsWallets,
		"purse":      BagsWallets,
		"bag":        BagsWallets,
		"backpack":   BagsWallets,
		"ring":       Jewelry,
		"necklace":   Jewelry,
		"watch":      Jewelry,
		"jacket":     Clothing,
		"scarf":      Clothing,
		"key":        Keys,
		"keychain":   Keys,
		"phone":      Phones,
		"smartphone": Phones,
		"cell phone": Phones,
		"mobile":     Phones,
		"dog":        Pets,
		"cat":        Pets,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
