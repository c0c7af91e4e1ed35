package lookup

// Request and response shapes of the generateContent endpoint

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	Tools            []tool            `json:"tools,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

var requiredFields = []string{
	"name",
	"brandName",
	"genericName",
	"activeIngredients",
	"indications",
	"dosageInstructions",
	"sideEffects",
	"genericAlternatives",
	"fdaStatus",
}

func medicineSchema() *schema {
	str := func() *schema { return &schema{Type: "STRING"} }

	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"name":               str(),
			"brandName":          str(),
			"genericName":        str(),
			"activeIngredients":  {Type: "ARRAY", Items: str()},
			"indications":        str(),
			"dosageInstructions": str(),
			"sideEffects":        {Type: "ARRAY", Items: str()},
			"genericAlternatives": {
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]*schema{
						"name": str(),
						"priceRange": {
							Type:        "STRING",
							Description: "Estimated retail price range (e.g. '$15 - $30')",
						},
					},
					Required: []string{"name", "priceRange"},
				},
			},
			"fdaStatus": str(),
		},
		Required: requiredFields,
	}
}
