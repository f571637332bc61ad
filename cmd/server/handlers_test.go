package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
	"github.com/pharmquiz/pharmquiz-server/internal/override"
)

func testBundleJSON(t *testing.T) []byte {
	t.Helper()
	text := func(s string) dataset.LocalizedText { return dataset.LocalizedText{EN: s, CS: s} }
	b := &dataset.Bundle{
		CourseBlocks: []dataset.CourseBlock{
			{ID: "cv", Title: text("Cardiovascular"), Description: text("Circulation")},
		},
		Drugs: []dataset.Drug{
			{
				ID:                  "amlodipine",
				Name:                text("Amlodipine"),
				Class:               text("Calcium channel blocker"),
				Indications:         text("Hypertension"),
				Mechanism:           text("L-type channel blockade"),
				AdverseEffects:      text("Ankle edema"),
				Contraindications:   text("Cardiogenic shock"),
				Monitoring:          text("Blood pressure"),
				InteractionsSummary: text("CYP3A4 substrates"),
				TypicalDoseText:     text("5 mg once daily"),
				Tags:                []string{"ccb"},
				CourseBlockID:       "cv",
			},
		},
		Questions:     []dataset.Question{},
		Cases:         []dataset.CaseStudy{},
		Interactions:  []dataset.InteractionRule{},
		DoseTemplates: []dataset.DoseTemplate{},
	}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	dir := t.TempDir()

	raw := testBundleJSON(t)
	parsed := gjson.ParseBytes(raw)
	for _, name := range dataset.Collections {
		col := parsed.Get(name).Raw
		if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(col), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loader := dataset.NewLoader(dir)
	manager := override.NewManager(override.NewMemoryStore())
	return &handlers{
		loader:   loader,
		manager:  manager,
		resolver: override.NewResolver(loader, manager),
	}
}

func TestHandleHealthz(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "status").String(); got != "ok" {
		t.Errorf("status field = %q", got)
	}
}

func TestHandleLint(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/lint", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !gjson.Get(body, "issues").IsArray() {
		t.Error("issues is not an array")
	}
	if got := gjson.Get(body, "summary.total").Int(); got != 0 {
		t.Errorf("summary.total = %d, want 0 for clean seed", got)
	}
}

func TestHandleValidate(t *testing.T) {
	h := newTestHandlers(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "dataset.json")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(testBundleJSON(t))
	part, err = mw.CreateFormFile("files", "broken.json")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("{{"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/validate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "results.#").Int(); got != 2 {
		t.Fatalf("results count = %d, want 2", got)
	}
	if !gjson.Get(body, "results.0.valid").Bool() {
		t.Errorf("first file invalid: %s", gjson.Get(body, "results.0.errors").Raw)
	}
	if gjson.Get(body, "results.1.valid").Bool() {
		t.Error("second file should be invalid")
	}
}

func TestHandleValidate_NoFiles(t *testing.T) {
	h := newTestHandlers(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("unrelated", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/validate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func importOverride(t *testing.T, h *handlers, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "override.json")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(payload)
	mw.WriteField("name", "test override")
	mw.WriteField("createdBy", "admin")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body: %s", rec.Code, rec.Body.String())
	}
	id := gjson.Get(rec.Body.String(), "overrideId").String()
	if id == "" {
		t.Fatal("no overrideId in response")
	}
	return id
}

func TestHandleImportAndActivate(t *testing.T) {
	h := newTestHandlers(t)

	payload, err := sjson.SetBytes(testBundleJSON(t), "drugs.0.id", "felodipine")
	if err != nil {
		t.Fatal(err)
	}
	id := importOverride(t, h, payload)

	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/overrides/"+id+"/activate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d, body: %s", rec.Code, rec.Body.String())
	}

	// The export now serves the override content.
	rec = httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "version").String(); got != "1.0" {
		t.Errorf("version = %q", got)
	}
	if got := gjson.Get(body, "dataset.drugs.0.id").String(); got != "felodipine" {
		t.Errorf("exported drug = %q, want override content", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestHandleImport_ValidationFailure(t *testing.T) {
	h := newTestHandlers(t)

	broken := bytes.Replace(testBundleJSON(t), []byte(`"courseBlockId":"cv"`), []byte(`"courseBlockId":"missing"`), 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "broken.json")
	part.Write(broken)
	mw.WriteField("name", "broken override")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "code").String(); got != dataset.CodeValidationFailed {
		t.Errorf("code = %q", got)
	}
	if got := gjson.Get(body, "issues.#").Int(); got == 0 {
		t.Error("response carries no issues")
	}

	// Nothing was persisted.
	rec = httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/overrides", nil))
	if got := gjson.Get(rec.Body.String(), "overrides.#").Int(); got != 0 {
		t.Errorf("overrides after failed import = %d, want 0", got)
	}
}

func TestHandleDeleteOverride(t *testing.T) {
	h := newTestHandlers(t)
	id := importOverride(t, h, testBundleJSON(t))

	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/overrides/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/overrides", nil))
	if got := gjson.Get(rec.Body.String(), "overrides.#").Int(); got != 0 {
		t.Errorf("overrides = %d, want 0", got)
	}
}

func TestHandleLintReport(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/lint.xlsx", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty workbook body")
	}
}
