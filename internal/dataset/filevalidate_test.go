package dataset_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
)

func marshalJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestValidateFiles_CollectionArray(t *testing.T) {
	b := validBundle()
	// The drug keeps its courseBlockId even though no course blocks are
	// part of the upload; single-file validation must not penalize that.
	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "drugs.json", Text: marshalJSON(t, b.Drugs)},
	})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	res := results[0]
	if res.File != "drugs.json" {
		t.Errorf("File = %q", res.File)
	}
	if !res.Valid {
		t.Fatalf("Valid = false, errors: %+v", res.Errors)
	}
}

func TestValidateFiles_ArrayKeepsIntraFileErrors(t *testing.T) {
	b := validBundle()
	b.Cases[0].Rubric.CorrectChoiceID = "no-such-choice"

	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "cases.json", Text: marshalJSON(t, b.Cases)},
	})
	res := results[0]
	if res.Valid {
		t.Fatal("Valid = true despite broken rubric reference")
	}
	if got := issuesOfType(res.Errors, dataset.IssueBrokenRef); len(got) != 1 {
		t.Errorf("broken-ref errors = %d, want 1: %+v", len(got), res.Errors)
	}
}

func TestValidateFiles_FullBundle(t *testing.T) {
	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "dataset.json", Text: bundleJSON(t, validBundle())},
	})
	if !results[0].Valid {
		t.Fatalf("Valid = false, errors: %+v", results[0].Errors)
	}
}

func TestValidateFiles_ExportEnvelope(t *testing.T) {
	envelope := `{"exportedAt":"2024-01-01T00:00:00Z","version":"1.0","dataset":` +
		string(bundleJSON(t, validBundle())) + `}`

	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "export.json", Text: []byte(envelope)},
	})
	if !results[0].Valid {
		t.Fatalf("Valid = false, errors: %+v", results[0].Errors)
	}
}

func TestValidateFiles_InvalidJSON(t *testing.T) {
	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "drugs.json", Text: []byte("not json")},
	})
	res := results[0]
	if res.Valid {
		t.Fatal("Valid = true for malformed JSON")
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "Invalid JSON syntax" {
		t.Errorf("errors = %+v", res.Errors)
	}
	if res.Errors[0].File != "drugs.json" {
		t.Errorf("File = %q, want drugs.json", res.Errors[0].File)
	}
}

func TestValidateFiles_UnrecognizedName(t *testing.T) {
	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "medications.json", Text: []byte("[]")},
	})
	res := results[0]
	if res.Valid {
		t.Fatal("Valid = true for unrecognized collection name")
	}
	if !strings.Contains(res.Errors[0].Message, "Unrecognized collection name: medications") {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
}

func TestValidateFiles_NeitherArrayNorBundle(t *testing.T) {
	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "notes.json", Text: []byte(`{"hello": "world"}`)},
	})
	res := results[0]
	if res.Valid {
		t.Fatal("Valid = true for unrecognized object shape")
	}
	if res.Errors[0].Message != "Expected an array or dataset bundle object" {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
}

func TestValidateFiles_IsolatesFailures(t *testing.T) {
	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "broken.json", Text: []byte("{{")},
		{Name: "dataset.json", Text: bundleJSON(t, validBundle())},
	})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Valid {
		t.Error("first file should fail")
	}
	if !results[1].Valid {
		t.Errorf("second file should pass, errors: %+v", results[1].Errors)
	}
}

func TestValidateFiles_BasenameHandlesPaths(t *testing.T) {
	b := validBundle()
	b.Drugs[0].CourseBlockID = ""

	results := dataset.ValidateFiles([]dataset.UploadedFile{
		{Name: "uploads/drugs.json", Text: marshalJSON(t, b.Drugs)},
	})
	if !results[0].Valid {
		t.Fatalf("Valid = false, errors: %+v", results[0].Errors)
	}
}
