package dataset_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
)

func asDatasetError(err error, target **dataset.Error) bool {
	return errors.As(err, target)
}

func text(s string) dataset.LocalizedText {
	return dataset.LocalizedText{EN: s, CS: s}
}

// validBundle builds a small bundle that lints clean: every localized
// field filled, all references resolvable, tags already normalized.
func validBundle() *dataset.Bundle {
	return &dataset.Bundle{
		CourseBlocks: []dataset.CourseBlock{
			{
				ID:          "ans",
				Title:       dataset.LocalizedText{EN: "ANS", CS: "ANS"},
				Description: text("Autonomic nervous system"),
			},
		},
		Drugs: []dataset.Drug{
			{
				ID:                  "atenolol",
				Name:                text("Atenolol"),
				Class:               text("Beta blocker"),
				Indications:         text("Hypertension"),
				Mechanism:           text("Beta-1 receptor antagonism"),
				AdverseEffects:      text("Bradycardia"),
				Contraindications:   text("Asthma"),
				Monitoring:          text("Heart rate"),
				InteractionsSummary: text("Additive with other AV blockers"),
				TypicalDoseText:     text("50 mg once daily"),
				Tags:                []string{"beta-blocker", "cardio"},
				CourseBlockID:       "ans",
			},
		},
		Questions: []dataset.Question{
			{
				ID:   "q1",
				Stem: text("Which receptor does atenolol block?"),
				Options: []dataset.QuestionOption{
					{ID: "a", Text: text("Beta-1"), Correct: true},
					{ID: "b", Text: text("Alpha-1"), Correct: false},
				},
				Explanation:   text("Atenolol is beta-1 selective."),
				Tags:          []string{"receptors"},
				CourseBlockID: "ans",
			},
		},
		Cases: []dataset.CaseStudy{
			{
				ID:      "case1",
				Stem:    text("A 62-year-old with hypertension and asthma."),
				Patient: dataset.Patient{Age: ptr(62.0), Sex: ptrStr("M"), WeightKg: ptr(80.0)},
				Vitals:  map[string]any{"bp": "160/95", "hr": 88.0},
				Labs:    map[string]float64{"k": 4.1},
				Choices: []dataset.CaseChoice{
					{ID: "c1", Option: text("Start atenolol"), Explanation: text("Risky with asthma")},
					{ID: "c2", Option: text("Start amlodipine"), Explanation: text("Preferred here")},
				},
				Rubric: dataset.Rubric{
					CorrectChoiceID:         "c2",
					ContraindicationsMissed: []string{},
					InteractionsMissed:      []string{},
					MonitoringMissing:       []string{},
					Scoring:                 dataset.RubricScoring{Correct: 2, Safety: 1, Monitoring: 1},
				},
				CourseBlockID: "ans",
				Tags:          []string{"hypertension"},
			},
		},
		Interactions: []dataset.InteractionRule{
			{
				ID:             "int1",
				AppliesWhen:    dataset.InteractionSelector{DrugIDs: []string{"atenolol"}},
				Severity:       "moderate",
				Mechanism:      text("Additive AV nodal blockade"),
				Recommendation: text("Monitor heart rate"),
				Rationale:      text("Both slow conduction"),
			},
		},
		DoseTemplates: []dataset.DoseTemplate{
			{
				ID:    "dose1",
				Title: text("Weight-based dosing"),
				Inputs: []dataset.DoseInput{
					{Name: "weight", Label: text("Weight (kg)"), Type: "number"},
				},
				Formula: text("dose = weight * 1.5"),
				Example: text("80 kg -> 120 mg"),
				Tags:    []string{"dosing"},
			},
		},
	}
}

func bundleJSON(t *testing.T, b *dataset.Bundle) []byte {
	t.Helper()
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	return raw
}

func issuesOfType(issues []dataset.LintIssue, issueType string) []dataset.LintIssue {
	var out []dataset.LintIssue
	for _, issue := range issues {
		if issue.Type == issueType {
			out = append(out, issue)
		}
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func ptrStr(s string) *string { return &s }
