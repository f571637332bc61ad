// Package dataset defines the pharmacology content model and the
// validation, linting, and export machinery around it.
package dataset

// LocalizedText is one piece of content in both supported languages.
// English is the canonical source language; Czech is the translation.
type LocalizedText struct {
	EN string `json:"en"`
	CS string `json:"cs"`
}

// CourseBlock is the root grouping entity. Drugs, questions, and cases
// reference it by ID.
type CourseBlock struct {
	ID          string        `json:"id"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
}

// Drug describes one drug monograph.
type Drug struct {
	ID                  string        `json:"id"`
	Name                LocalizedText `json:"name"`
	Class               LocalizedText `json:"class"`
	Indications         LocalizedText `json:"indications"`
	Mechanism           LocalizedText `json:"mechanism"`
	AdverseEffects      LocalizedText `json:"adverseEffects"`
	Contraindications   LocalizedText `json:"contraindications"`
	Monitoring          LocalizedText `json:"monitoring"`
	InteractionsSummary LocalizedText `json:"interactionsSummary"`
	TypicalDoseText     LocalizedText `json:"typicalDoseText"`
	Tags                []string      `json:"tags"`
	CourseBlockID       string        `json:"courseBlockId"`
}

// QuestionOption is one answer option of a multiple-choice question.
type QuestionOption struct {
	ID      string        `json:"id"`
	Text    LocalizedText `json:"text"`
	Correct bool          `json:"correct"`
}

// Question is a multiple-choice quiz question.
type Question struct {
	ID            string           `json:"id"`
	Stem          LocalizedText    `json:"stem"`
	Options       []QuestionOption `json:"options"`
	Explanation   LocalizedText    `json:"explanation"`
	Tags          []string         `json:"tags"`
	CourseBlockID string           `json:"courseBlockId"`
}

// Patient holds the optional demographics of a clinical case.
type Patient struct {
	Age      *float64 `json:"age,omitempty"`
	Sex      *string  `json:"sex,omitempty"`
	WeightKg *float64 `json:"weightKg,omitempty"`
}

// CaseChoice is one management option offered by a clinical case.
type CaseChoice struct {
	ID          string        `json:"id"`
	Option      LocalizedText `json:"option"`
	Explanation LocalizedText `json:"explanation"`
}

// RubricScoring weights the three scored dimensions of a case.
type RubricScoring struct {
	Correct    float64 `json:"correct"`
	Safety     float64 `json:"safety"`
	Monitoring float64 `json:"monitoring"`
}

// Rubric grades a clinical case. CorrectChoiceID must name one of the
// case's own choices.
type Rubric struct {
	CorrectChoiceID         string        `json:"correctChoiceId"`
	ContraindicationsMissed []string      `json:"contraindicationsMissed"`
	InteractionsMissed      []string      `json:"interactionsMissed"`
	MonitoringMissing       []string      `json:"monitoringMissing"`
	Scoring                 RubricScoring `json:"scoring"`
}

// CaseStudy is a clinical case vignette with graded choices.
type CaseStudy struct {
	ID            string             `json:"id"`
	Stem          LocalizedText      `json:"stem"`
	Patient       Patient            `json:"patient"`
	Vitals        map[string]any     `json:"vitals"`
	Labs          map[string]float64 `json:"labs,omitempty"`
	Choices       []CaseChoice       `json:"choices"`
	Rubric        Rubric             `json:"rubric"`
	CourseBlockID string             `json:"courseBlockId"`
	Tags          []string           `json:"tags"`
}

// InteractionSelector decides which drugs an interaction rule applies to.
type InteractionSelector struct {
	DrugIDs []string `json:"drugIds,omitempty"`
	Classes []string `json:"classes,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// InteractionRule describes a drug-drug interaction and its handling.
type InteractionRule struct {
	ID             string              `json:"id"`
	AppliesWhen    InteractionSelector `json:"appliesWhen"`
	Severity       string              `json:"severity"`
	Mechanism      LocalizedText       `json:"mechanism"`
	Recommendation LocalizedText       `json:"recommendation"`
	Rationale      LocalizedText       `json:"rationale"`
}

// DoseInput is one input field of a dose calculation template.
type DoseInput struct {
	Name  string        `json:"name"`
	Label LocalizedText `json:"label"`
	Type  string        `json:"type"`
}

// DoseTemplate is a parameterised dose calculation exercise.
type DoseTemplate struct {
	ID      string        `json:"id"`
	Title   LocalizedText `json:"title"`
	Inputs  []DoseInput   `json:"inputs"`
	Formula LocalizedText `json:"formula"`
	Example LocalizedText `json:"example"`
	Tags    []string      `json:"tags"`
}

// Bundle aggregates all six collections. It is the unit of validation,
// linting, export, and override.
type Bundle struct {
	CourseBlocks  []CourseBlock     `json:"courseBlocks"`
	Drugs         []Drug            `json:"drugs"`
	Questions     []Question        `json:"questions"`
	Cases         []CaseStudy       `json:"cases"`
	Interactions  []InteractionRule `json:"interactions"`
	DoseTemplates []DoseTemplate    `json:"doseTemplates"`
}

// Collections lists the bundle collection names in their canonical order.
// Loader file names, lint pass order, and upload inference all follow it.
var Collections = []string{
	"courseBlocks",
	"drugs",
	"questions",
	"cases",
	"interactions",
	"doseTemplates",
}

// LintIssue is one structured finding produced by validation or linting.
type LintIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Path     string `json:"path,omitempty"`
	ID       string `json:"id,omitempty"`
}

// Issue types.
const (
	IssueSchema             = "schema"
	IssueDuplicateID        = "duplicate-id"
	IssueMissingTranslation = "missing-translation"
	IssueBrokenRef          = "broken-ref"
	IssueEmptyField         = "empty-field"
	IssueTagFormat          = "tag-format"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationResult is the outcome of validating one bundle. Valid is
// true iff no error-severity issues were found; warnings never affect it.
type ValidationResult struct {
	Valid    bool        `json:"valid"`
	Errors   []LintIssue `json:"errors"`
	Warnings []LintIssue `json:"warnings"`
}

// FileValidationResult is the per-file outcome of an upload batch.
type FileValidationResult struct {
	File     string      `json:"file"`
	Valid    bool        `json:"valid"`
	Errors   []LintIssue `json:"errors"`
	Warnings []LintIssue `json:"warnings"`
}
