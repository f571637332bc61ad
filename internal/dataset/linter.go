package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// LintDataset runs the content-quality and referential-integrity checks
// over a structurally valid bundle. It is a pure function: the same
// bundle always yields the same issues in the same order. Passes run in
// a fixed sequence: duplicate IDs per collection, missing translations
// per collection, per-entity structural checks, tag format, then
// cross-collection references.
func LintDataset(b *Bundle) []LintIssue {
	var issues []LintIssue

	issues = append(issues, checkDuplicateIDs(b)...)
	issues = append(issues, checkTranslations(b)...)
	issues = append(issues, checkQuestionOptions(b)...)
	issues = append(issues, checkCaseRubrics(b)...)
	issues = append(issues, checkTagFormat(b)...)
	issues = append(issues, checkReferences(b)...)

	return issues
}

// ValidateDatasetJSON validates raw JSON as a full bundle. The structural
// phase runs first; on failure its field-path tree is flattened into
// schema issues and the lint phase is skipped entirely.
func ValidateDatasetJSON(raw []byte) ValidationResult {
	fieldErrs, err := ValidateStructure(raw)
	if err != nil {
		msg := err.Error()
		var dsErr *Error
		if errors.As(err, &dsErr) && dsErr.Code == CodeParseFailed {
			msg = "Invalid JSON syntax"
		}
		return ValidationResult{
			Valid: false,
			Errors: []LintIssue{{
				Type:     IssueSchema,
				Severity: SeverityError,
				Message:  msg,
			}},
			Warnings: []LintIssue{},
		}
	}
	if len(fieldErrs) > 0 {
		errs := lo.Map(fieldErrs, func(fe FieldError, _ int) LintIssue {
			return LintIssue{
				Type:     IssueSchema,
				Severity: SeverityError,
				Message:  fe.Message,
				Path:     fe.PathString(),
			}
		})
		return ValidationResult{Valid: false, Errors: errs, Warnings: []LintIssue{}}
	}

	bundle, decErr := DecodeBundle(raw)
	if decErr != nil {
		return ValidationResult{
			Valid: false,
			Errors: []LintIssue{{
				Type:     IssueSchema,
				Severity: SeverityError,
				Message:  decErr.Error(),
			}},
			Warnings: []LintIssue{},
		}
	}

	issues := LintDataset(bundle)
	errs, warns := partitionIssues(issues)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

func partitionIssues(issues []LintIssue) (errs, warns []LintIssue) {
	errs = lo.Filter(issues, func(i LintIssue, _ int) bool { return i.Severity == SeverityError })
	warns = lo.Filter(issues, func(i LintIssue, _ int) bool { return i.Severity == SeverityWarning })
	if errs == nil {
		errs = []LintIssue{}
	}
	if warns == nil {
		warns = []LintIssue{}
	}
	return errs, warns
}

// checkDuplicateIDs scans each collection left to right with a seen-set.
// The first occurrence of an ID is canonical; every later occurrence is
// flagged once.
func checkDuplicateIDs(b *Bundle) []LintIssue {
	var issues []LintIssue

	check := func(collection string, ids []string) {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				issues = append(issues, LintIssue{
					Type:     IssueDuplicateID,
					Severity: SeverityError,
					Message:  fmt.Sprintf("Duplicate ID found: %s", id),
					File:     collection,
					ID:       id,
				})
			}
			seen[id] = struct{}{}
		}
	}

	check("courseBlocks", lo.Map(b.CourseBlocks, func(e CourseBlock, _ int) string { return e.ID }))
	check("drugs", lo.Map(b.Drugs, func(e Drug, _ int) string { return e.ID }))
	check("questions", lo.Map(b.Questions, func(e Question, _ int) string { return e.ID }))
	check("cases", lo.Map(b.Cases, func(e CaseStudy, _ int) string { return e.ID }))
	check("interactions", lo.Map(b.Interactions, func(e InteractionRule, _ int) string { return e.ID }))
	check("doseTemplates", lo.Map(b.DoseTemplates, func(e DoseTemplate, _ int) string { return e.ID }))

	return issues
}

// checkTranslations walks every localized field in collection order and
// entity declaration order. A blank English string is an error, a blank
// Czech string only a warning: English is the canonical source language.
func checkTranslations(b *Bundle) []LintIssue {
	var issues []LintIssue

	check := func(text LocalizedText, fieldPath, id string) {
		if strings.TrimSpace(text.EN) == "" {
			issues = append(issues, LintIssue{
				Type:     IssueMissingTranslation,
				Severity: SeverityError,
				Message:  "Missing English translation",
				Path:     fieldPath + ".en",
				ID:       id,
			})
		}
		if strings.TrimSpace(text.CS) == "" {
			issues = append(issues, LintIssue{
				Type:     IssueMissingTranslation,
				Severity: SeverityWarning,
				Message:  "Missing Czech translation",
				Path:     fieldPath + ".cs",
				ID:       id,
			})
		}
	}

	for _, block := range b.CourseBlocks {
		check(block.Title, "courseBlocks.title", block.ID)
		check(block.Description, "courseBlocks.description", block.ID)
	}

	for _, drug := range b.Drugs {
		check(drug.Name, "drugs.name", drug.ID)
		check(drug.Class, "drugs.class", drug.ID)
		check(drug.Indications, "drugs.indications", drug.ID)
		check(drug.Mechanism, "drugs.mechanism", drug.ID)
		check(drug.AdverseEffects, "drugs.adverseEffects", drug.ID)
		check(drug.Contraindications, "drugs.contraindications", drug.ID)
		check(drug.Monitoring, "drugs.monitoring", drug.ID)
		check(drug.InteractionsSummary, "drugs.interactionsSummary", drug.ID)
		check(drug.TypicalDoseText, "drugs.typicalDoseText", drug.ID)
	}

	for _, question := range b.Questions {
		check(question.Stem, "questions.stem", question.ID)
		for i, opt := range question.Options {
			check(opt.Text, fmt.Sprintf("questions.options[%d].text", i), question.ID)
		}
		check(question.Explanation, "questions.explanation", question.ID)
	}

	for _, cs := range b.Cases {
		check(cs.Stem, "cases.stem", cs.ID)
		for i, choice := range cs.Choices {
			check(choice.Option, fmt.Sprintf("cases.choices[%d].option", i), cs.ID)
			check(choice.Explanation, fmt.Sprintf("cases.choices[%d].explanation", i), cs.ID)
		}
	}

	for _, rule := range b.Interactions {
		check(rule.Mechanism, "interactions.mechanism", rule.ID)
		check(rule.Recommendation, "interactions.recommendation", rule.ID)
		check(rule.Rationale, "interactions.rationale", rule.ID)
	}

	for _, tmpl := range b.DoseTemplates {
		check(tmpl.Title, "doseTemplates.title", tmpl.ID)
		for i, input := range tmpl.Inputs {
			check(input.Label, fmt.Sprintf("doseTemplates.inputs[%d].label", i), tmpl.ID)
		}
		check(tmpl.Formula, "doseTemplates.formula", tmpl.ID)
		check(tmpl.Example, "doseTemplates.example", tmpl.ID)
	}

	return issues
}

func checkQuestionOptions(b *Bundle) []LintIssue {
	var issues []LintIssue
	for _, question := range b.Questions {
		hasCorrect := lo.SomeBy(question.Options, func(opt QuestionOption) bool { return opt.Correct })
		if !hasCorrect {
			issues = append(issues, LintIssue{
				Type:     IssueSchema,
				Severity: SeverityError,
				Message:  "No correct option marked",
				Path:     "questions.options",
				ID:       question.ID,
			})
		}
	}
	return issues
}

func checkCaseRubrics(b *Bundle) []LintIssue {
	var issues []LintIssue
	for _, cs := range b.Cases {
		choiceIDs := make(map[string]struct{}, len(cs.Choices))
		for _, choice := range cs.Choices {
			choiceIDs[choice.ID] = struct{}{}
		}
		if _, ok := choiceIDs[cs.Rubric.CorrectChoiceID]; !ok {
			issues = append(issues, LintIssue{
				Type:     IssueBrokenRef,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Rubric references non-existent choice: %s", cs.Rubric.CorrectChoiceID),
				Path:     "cases.rubric.correctChoiceId",
				ID:       cs.ID,
			})
		}
	}
	return issues
}

// checkTagFormat flags drug tags that are not already lowercase and
// trimmed. Convention only, so a warning.
func checkTagFormat(b *Bundle) []LintIssue {
	var issues []LintIssue
	for _, drug := range b.Drugs {
		for _, tag := range drug.Tags {
			if tag != strings.TrimSpace(strings.ToLower(tag)) {
				issues = append(issues, LintIssue{
					Type:     IssueTagFormat,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("Tag should be lowercase and trimmed: %q", tag),
					Path:     "drugs.tags",
					ID:       drug.ID,
				})
			}
		}
	}
	return issues
}

// checkReferences verifies cross-collection foreign keys: course-block
// references from drugs, questions, and cases, then drug references from
// interaction selectors.
func checkReferences(b *Bundle) []LintIssue {
	var issues []LintIssue

	blockIDs := make(map[string]struct{}, len(b.CourseBlocks))
	for _, block := range b.CourseBlocks {
		blockIDs[block.ID] = struct{}{}
	}

	blockRef := func(collection, blockID, id string) {
		if _, ok := blockIDs[blockID]; !ok {
			issues = append(issues, LintIssue{
				Type:     IssueBrokenRef,
				Severity: SeverityError,
				Message:  fmt.Sprintf("References non-existent course block: %s", blockID),
				Path:     collection + ".courseBlockId",
				ID:       id,
			})
		}
	}

	for _, drug := range b.Drugs {
		blockRef("drugs", drug.CourseBlockID, drug.ID)
	}
	for _, question := range b.Questions {
		blockRef("questions", question.CourseBlockID, question.ID)
	}
	for _, cs := range b.Cases {
		blockRef("cases", cs.CourseBlockID, cs.ID)
	}

	drugIDs := make(map[string]struct{}, len(b.Drugs))
	for _, drug := range b.Drugs {
		drugIDs[drug.ID] = struct{}{}
	}
	for _, rule := range b.Interactions {
		for _, drugID := range rule.AppliesWhen.DrugIDs {
			if _, ok := drugIDs[drugID]; !ok {
				issues = append(issues, LintIssue{
					Type:     IssueBrokenRef,
					Severity: SeverityError,
					Message:  fmt.Sprintf("References non-existent drug: %s", drugID),
					Path:     "interactions.appliesWhen.drugIds",
					ID:       rule.ID,
				})
			}
		}
	}

	return issues
}
