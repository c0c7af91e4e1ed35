package medicine

// DefaultLanguage the lookup backend answers in
const DefaultLanguage = "en"

// Language a record can be translated into
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages offered for translation
var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "hi", Name: "Hindi"},
	{Code: "zh", Name: "Mandarin"},
	{Code: "ar", Name: "Arabic"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "bn", Name: "Bengali"},
}

// LanguageByCode returns the language for code
func LanguageByCode(code string) (Language, bool) {
	for _, lang := range Languages {
		if lang.Code == code {
			return lang, true
		}
	}

	return Language{}, false
}

// SearchSuggestions offered on the search view
var SearchSuggestions = []string{"Ibuprofen", "Acetaminophen", "Loratadine", "Omeprazole"}
