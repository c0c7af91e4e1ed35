package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.0xdad.com/tblyler/medilens/medicine"
)

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence(`  {"a":1} `))
}

func TestDecodeRecordEmptyCollections(t *testing.T) {
	rec, err := decodeRecord(`{
		"name": "Advil", "brandName": "Advil", "genericName": "Ibuprofen",
		"activeIngredients": [], "indications": "", "dosageInstructions": "",
		"sideEffects": [], "genericAlternatives": [], "fdaStatus": ""
	}`)
	require.NoError(t, err)
	assert.Equal(t, "Advil", rec.Name)
	assert.NotNil(t, rec.SideEffects)
	assert.Empty(t, rec.GenericAlternatives)
}

func TestDecodeRecordRejectsBlankName(t *testing.T) {
	_, err := decodeRecord(`{
		"name": " ", "brandName": "", "genericName": "",
		"activeIngredients": [], "indications": "", "dosageInstructions": "",
		"sideEffects": [], "genericAlternatives": [], "fdaStatus": ""
	}`)
	require.ErrorIs(t, err, medicine.ErrIncomplete)
}

func TestDecodeRecordNamesMissingFields(t *testing.T) {
	_, err := decodeRecord(`{"name": "Advil"}`)
	require.ErrorIs(t, err, medicine.ErrIncomplete)
	assert.Contains(t, err.Error(), "brandName")
	assert.Contains(t, err.Error(), "fdaStatus")

	_, err = decodeRecord("")
	require.Error(t, err)
}
