package medicine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValidate(t *testing.T) {
	rec := &Record{Name: "Lipitor", GenericAlternatives: []GenericAlternative{{Name: "Atorvastatin", PriceRange: "$10 - $25"}}}
	require.NoError(t, rec.Validate())

	require.ErrorIs(t, (&Record{Name: "  "}).Validate(), ErrIncomplete)
	require.ErrorIs(t, (&Record{Name: "x", GenericAlternatives: []GenericAlternative{{PriceRange: "$1"}}}).Validate(), ErrIncomplete)

	var nilRecord *Record
	require.ErrorIs(t, nilRecord.Validate(), ErrIncomplete)
}

func TestLanguageByCode(t *testing.T) {
	lang, ok := LanguageByCode("hi")
	require.True(t, ok)
	assert.Equal(t, "Hindi", lang.Name)

	_, ok = LanguageByCode("xx")
	assert.False(t, ok)
}
