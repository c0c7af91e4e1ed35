package navigation

import "git.0xdad.com/tblyler/medilens/medicine"

// View the user is on
type View string

// Views
const (
	Home      View = "HOME"
	Scan      View = "SCAN"
	Search    View = "SEARCH"
	Details   View = "DETAILS"
	Reminders View = "REMINDERS"
)

// Valid reports whether v is a known view
func (v View) Valid() bool {
	switch v {
	case Home, Scan, Search, Details, Reminders:
		return true
	}

	return false
}

func (v View) String() string {
	return string(v)
}

// State of the navigation. Only held in memory.
type State struct {
	View                View             `json:"view"`
	Selected            *medicine.Record `json:"selectedMedicine,omitempty"`
	SearchQuery         string           `json:"searchQuery"`
	IsSearching         bool             `json:"isSearching"`
	IsScanning          bool             `json:"isScanning"`
	IsTranslating       bool             `json:"isTranslating"`
	Translation         string           `json:"translation,omitempty"`
	TranslationLanguage string           `json:"translationLanguage"`
}
