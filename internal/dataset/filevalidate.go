package dataset

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// UploadedFile is one raw upload: a name plus its text content.
type UploadedFile struct {
	Name string
	Text []byte
}

// collectionForBase is the closed mapping from recognized upload base
// names to bundle collections. Unmapped names are rejected explicitly
// rather than guessed at.
var collectionForBase = map[string]string{
	"courseBlocks":  "courseBlocks",
	"drugs":         "drugs",
	"questions":     "questions",
	"cases":         "cases",
	"interactions":  "interactions",
	"doseTemplates": "doseTemplates",
}

// emptyBundleJSON is the wrapping template for single-collection uploads.
const emptyBundleJSON = `{"courseBlocks":[],"drugs":[],"questions":[],"cases":[],"interactions":[],"doseTemplates":[]}`

// ValidateFiles validates each uploaded file independently. A file may be
// a full bundle object, a single collection array named after its target
// collection, or an export envelope; anything else is rejected. One
// file's failure never blocks evaluation of its siblings.
func ValidateFiles(files []UploadedFile) []FileValidationResult {
	results := make([]FileValidationResult, 0, len(files))
	for _, f := range files {
		results = append(results, validateFile(f))
	}
	return results
}

func validateFile(f UploadedFile) FileValidationResult {
	if !json.Valid(f.Text) {
		return fileFailure(f.Name, "Invalid JSON syntax")
	}

	parsed := gjson.ParseBytes(f.Text)

	switch {
	case parsed.IsObject() && looksLikeBundle(parsed):
		return fileResult(f.Name, ValidateDatasetJSON(f.Text))

	case parsed.IsObject() && parsed.Get("dataset").IsObject():
		// Export envelope: validate the wrapped dataset.
		return fileResult(f.Name, ValidateDatasetJSON([]byte(parsed.Get("dataset").Raw)))

	case parsed.IsArray():
		collection, ok := collectionForBase[baseName(f.Name)]
		if !ok {
			return fileFailure(f.Name, fmt.Sprintf("Unrecognized collection name: %s", baseName(f.Name)))
		}
		wrapped, err := sjson.SetRawBytes([]byte(emptyBundleJSON), collection, f.Text)
		if err != nil {
			return fileFailure(f.Name, fmt.Sprintf("Failed to wrap collection: %v", err))
		}
		return fileResult(f.Name, dropForeignRefs(ValidateDatasetJSON(wrapped)))

	default:
		return fileFailure(f.Name, "Expected an array or dataset bundle object")
	}
}

// looksLikeBundle reports whether the value carries at least one of the
// six recognized top-level collection keys.
func looksLikeBundle(parsed gjson.Result) bool {
	for _, name := range Collections {
		if parsed.Get(name).Exists() {
			return true
		}
	}
	return false
}

// dropForeignRefs removes broken-ref errors that point outside a
// single-collection upload. The synthetic wrapping bundle has every
// other collection empty, so those references cannot be resolved from
// the file alone; rubric references stay within one case and are kept.
func dropForeignRefs(res ValidationResult) ValidationResult {
	kept := res.Errors[:0:0]
	for _, issue := range res.Errors {
		if issue.Type == IssueBrokenRef && isForeignRefPath(issue.Path) {
			continue
		}
		kept = append(kept, issue)
	}
	res.Errors = kept
	if res.Errors == nil {
		res.Errors = []LintIssue{}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

func isForeignRefPath(path string) bool {
	return strings.HasSuffix(path, ".courseBlockId") || path == "interactions.appliesWhen.drugIds"
}

func baseName(name string) string {
	return strings.TrimSuffix(path.Base(name), path.Ext(name))
}

func fileResult(name string, res ValidationResult) FileValidationResult {
	return FileValidationResult{
		File:     name,
		Valid:    res.Valid,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
}

func fileFailure(name, message string) FileValidationResult {
	return FileValidationResult{
		File:  name,
		Valid: false,
		Errors: []LintIssue{{
			Type:     IssueSchema,
			Severity: SeverityError,
			Message:  message,
			File:     name,
		}},
		Warnings: []LintIssue{},
	}
}
