package reminder

import (
	"regexp"
	"strings"

	"git.0xdad.com/tblyler/medilens/db"
	"git.0xdad.com/tblyler/medilens/medicine"
)

// DefaultTime when the dosage instructions name no time of day
const DefaultTime = "09:00"

var (
	instructionTime    = regexp.MustCompile(`\b([01]?[0-9]|2[0-3]):[0-5][0-9]\b`)
	sentenceTerminator = regexp.MustCompile(`[.!?](\s|$)`)
)

// QuickAdd derives a draft from the record's dosage instructions.
//
// The time is the first 24-hour HH:MM token, DefaultTime if there is none.
// The dosage is the text before the first sentence terminator (., ! or ?
// followed by whitespace or the end). Instructions without a terminator, or
// with nothing before it, get DefaultDosage.
func QuickAdd(rec *medicine.Record) Draft {
	return Draft{
		MedicineName: rec.Name,
		Time:         instructionsTime(rec.DosageInstructions),
		Dosage:       instructionsDosage(rec.DosageInstructions),
		Days:         db.EveryDay(),
	}
}

func instructionsTime(instructions string) string {
	token := instructionTime.FindString(instructions)
	if token == "" {
		return DefaultTime
	}

	hhmm, err := NormalizeTime(token)
	if err != nil {
		return DefaultTime
	}

	return hhmm
}

func instructionsDosage(instructions string) string {
	loc := sentenceTerminator.FindStringIndex(instructions)
	if loc == nil {
		return DefaultDosage
	}

	dosage := strings.TrimSpace(instructions[:loc[0]])
	if dosage == "" {
		return DefaultDosage
	}

	return dosage
}
