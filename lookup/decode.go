package lookup

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"git.0xdad.com/tblyler/medilens/medicine"
)

type wireAlternative struct {
	Name       *string `json:"name"`
	PriceRange *string `json:"priceRange"`
}

// wireRecord uses pointers so absent fields can be told apart from empty ones
type wireRecord struct {
	Name                *string            `json:"name"`
	BrandName           *string            `json:"brandName"`
	GenericName         *string            `json:"genericName"`
	ActiveIngredients   *[]string          `json:"activeIngredients"`
	Indications         *string            `json:"indications"`
	DosageInstructions  *string            `json:"dosageInstructions"`
	SideEffects         *[]string          `json:"sideEffects"`
	GenericAlternatives *[]wireAlternative `json:"genericAlternatives"`
	FDAStatus           *string            `json:"fdaStatus"`
}

func (w *wireRecord) missing() []string {
	present := map[string]bool{
		"name":                w.Name != nil,
		"brandName":           w.BrandName != nil,
		"genericName":         w.GenericName != nil,
		"activeIngredients":   w.ActiveIngredients != nil,
		"indications":         w.Indications != nil,
		"dosageInstructions":  w.DosageInstructions != nil,
		"sideEffects":         w.SideEffects != nil,
		"genericAlternatives": w.GenericAlternatives != nil,
		"fdaStatus":           w.FDAStatus != nil,
	}

	var missing []string
	for _, field := range requiredFields {
		if !present[field] {
			missing = append(missing, field)
		}
	}

	if w.GenericAlternatives != nil {
		for i, alt := range *w.GenericAlternatives {
			if alt.Name == nil {
				missing = append(missing, fmt.Sprintf("genericAlternatives[%d].name", i))
			}

			if alt.PriceRange == nil {
				missing = append(missing, fmt.Sprintf("genericAlternatives[%d].priceRange", i))
			}
		}
	}

	return missing
}

func (w *wireRecord) record() *medicine.Record {
	rec := &medicine.Record{
		Name:               *w.Name,
		BrandName:          *w.BrandName,
		GenericName:        *w.GenericName,
		ActiveIngredients:  append([]string{}, *w.ActiveIngredients...),
		Indications:        *w.Indications,
		DosageInstructions: *w.DosageInstructions,
		SideEffects:        append([]string{}, *w.SideEffects...),
		FDAStatus:          *w.FDAStatus,
	}

	rec.GenericAlternatives = make([]medicine.GenericAlternative, 0, len(*w.GenericAlternatives))
	for _, alt := range *w.GenericAlternatives {
		rec.GenericAlternatives = append(rec.GenericAlternatives, medicine.GenericAlternative{
			Name:       *alt.Name,
			PriceRange: *alt.PriceRange,
		})
	}

	return rec
}

// stripFence removes a markdown code fence around a JSON answer
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}

// decodeRecord parses the model's JSON answer into a complete record.
// Slightly malformed JSON is repaired first, a record missing any required
// field is rejected rather than partially returned.
func decodeRecord(text string) (*medicine.Record, error) {
	text = stripFence(text)
	if text == "" {
		return nil, fmt.Errorf("empty response text")
	}

	var w wireRecord
	err := json.Unmarshal([]byte(text), &w)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, fmt.Errorf("failed to parse response JSON: %w", err)
		}

		w = wireRecord{}
		err = json.Unmarshal([]byte(repaired), &w)
		if err != nil {
			return nil, fmt.Errorf("failed to parse repaired response JSON: %w", err)
		}
	}

	if missing := w.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("response is missing required fields %s: %w",
			strings.Join(missing, ", "), medicine.ErrIncomplete)
	}

	rec := w.record()
	err = rec.Validate()
	if err != nil {
		return nil, err
	}

	return rec, nil
}
