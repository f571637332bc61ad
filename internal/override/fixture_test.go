package override_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
)

func text(s string) dataset.LocalizedText {
	return dataset.LocalizedText{EN: s, CS: s}
}

// fixtureBundle builds a small bundle that validates clean.
func fixtureBundle() *dataset.Bundle {
	return &dataset.Bundle{
		CourseBlocks: []dataset.CourseBlock{
			{ID: "cv", Title: text("Cardiovascular"), Description: text("Drugs of the circulation")},
		},
		Drugs: []dataset.Drug{
			{
				ID:                  "metoprolol",
				Name:                text("Metoprolol"),
				Class:               text("Beta blocker"),
				Indications:         text("Hypertension"),
				Mechanism:           text("Beta-1 antagonism"),
				AdverseEffects:      text("Bradycardia"),
				Contraindications:   text("Severe bradycardia"),
				Monitoring:          text("Heart rate"),
				InteractionsSummary: text("Additive with verapamil"),
				TypicalDoseText:     text("50 mg twice daily"),
				Tags:                []string{"beta-blocker"},
				CourseBlockID:       "cv",
			},
		},
		Questions:     []dataset.Question{},
		Cases:         []dataset.CaseStudy{},
		Interactions:  []dataset.InteractionRule{},
		DoseTemplates: []dataset.DoseTemplate{},
	}
}

func fixtureJSON(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(fixtureBundle())
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func asDatasetError(err error, target **dataset.Error) bool {
	return errors.As(err, target)
}

func marshalBundle(b *dataset.Bundle) ([]byte, error) {
	return json.Marshal(b)
}

// writeSeedDir lays the fixture bundle out as a seed directory.
func writeSeedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	b := fixtureBundle()

	collections := map[string]any{
		"courseBlocks":  b.CourseBlocks,
		"drugs":         b.Drugs,
		"questions":     b.Questions,
		"cases":         b.Cases,
		"interactions":  b.Interactions,
		"doseTemplates": b.DoseTemplates,
	}
	for name, v := range collections {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), raw, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
