// Package medicine holds the result of a medicine lookup.
package medicine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncomplete occurs when a record is missing a required field
var ErrIncomplete = errors.New("incomplete medicine record")

// GenericAlternative to a brand name medicine
type GenericAlternative struct {
	Name       string `json:"name"`
	PriceRange string `json:"priceRange"`
}

// Record describing an identified medicine. Field names follow the
// structured schema exchanged with the lookup backend.
type Record struct {
	Name                string               `json:"name"`
	BrandName           string               `json:"brandName"`
	GenericName         string               `json:"genericName"`
	ActiveIngredients   []string             `json:"activeIngredients"`
	Indications         string               `json:"indications"`
	DosageInstructions  string               `json:"dosageInstructions"`
	SideEffects         []string             `json:"sideEffects"`
	GenericAlternatives []GenericAlternative `json:"genericAlternatives"`
	FDAStatus           string               `json:"fdaStatus"`
}

// Validate that the record identifies a medicine. Presence of every field is
// checked while decoding, here only values that make the record unusable are
// rejected.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("nil record: %w", ErrIncomplete)
	}

	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record has no name: %w", ErrIncomplete)
	}

	for i, alt := range r.GenericAlternatives {
		if strings.TrimSpace(alt.Name) == "" {
			return fmt.Errorf("generic alternative %d has no name: %w", i, ErrIncomplete)
		}
	}

	return nil
}
