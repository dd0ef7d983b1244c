package domain

import (
	"github.com/shopspring/decimal"
)

// Item is a catalog entry. Identity is ID; every other field may change
// through catalog delta events.
type Item struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Unit        Unit            `json:"unit" yaml:"unit"`
	Category    string          `json:"category,omitempty" yaml:"category"`
	SearchTerms []string        `json:"search_terms,omitempty" yaml:"search_terms"`
	Available   bool            `json:"available" yaml:"available"`
	ImageURL    string          `json:"image_url,omitempty" yaml:"image_url"`
}

// FindItem returns the item with the given id.
func FindItem(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Profile is the signed-in user's account data as returned by the profile
// collaborator.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
