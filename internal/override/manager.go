package override

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
)

// Manager imports, lists, activates, and deletes dataset overrides.
// Validation failure and persistence are mutually exclusive: nothing is
// stored unless the uploaded bundle validates clean of errors.
type Manager struct {
	store Store
}

// NewManager creates a manager over a Store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Import validates rawJSON and persists it as a new inactive override.
// An export envelope ({exportedAt, version, dataset}) is unwrapped
// first, so re-importing a download is equivalent to importing the
// bundle directly. On any error-severity issue it fails with
// VALIDATION_FAILED carrying the issue list and persists nothing.
func (m *Manager) Import(name, description string, rawJSON []byte, createdBy string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", dataset.NewError(dataset.CodeInvalidFormat, "override name is required")
	}
	if len(name) > 255 {
		return "", dataset.NewError(dataset.CodeInvalidFormat, "override name exceeds 255 characters")
	}
	if len(description) > 1000 {
		return "", dataset.NewError(dataset.CodeInvalidFormat, "override description exceeds 1000 characters")
	}
	if !json.Valid(rawJSON) {
		return "", dataset.NewError(dataset.CodeParseFailed, "invalid JSON syntax")
	}

	bundleJSON := unwrapEnvelope(rawJSON)

	result := dataset.ValidateDatasetJSON(bundleJSON)
	if !result.Valid {
		return "", dataset.NewError(dataset.CodeValidationFailed, "dataset validation failed").
			WithContext("issues", result.Errors)
	}

	id, err := m.store.Create(Record{
		Name:        name,
		Description: description,
		JSONText:    string(bundleJSON),
		CreatedBy:   createdBy,
	})
	if err != nil {
		return "", dataset.WrapError(dataset.CodeDatabaseError, "storing override", err)
	}

	slog.Info("override imported",
		"id", id,
		"name", name,
		"warnings", len(result.Warnings),
	)
	return id, nil
}

// List returns override summaries, newest first.
func (m *Manager) List() ([]Summary, error) {
	summaries, err := m.store.List()
	if err != nil {
		return nil, dataset.WrapError(dataset.CodeDatabaseError, "listing overrides", err)
	}
	return summaries, nil
}

// Activate makes the target the single active override.
func (m *Manager) Activate(id string) error {
	if err := m.store.Activate(id); err != nil {
		return dataset.WrapError(dataset.CodeDatabaseError, "activating override", err)
	}
	slog.Info("override activated", "id", id)
	return nil
}

// Deactivate returns the target to the inactive state, leaving the
// baked-in dataset authoritative if no other override is active.
func (m *Manager) Deactivate(id string) error {
	if err := m.store.Deactivate(id); err != nil {
		return dataset.WrapError(dataset.CodeDatabaseError, "deactivating override", err)
	}
	slog.Info("override deactivated", "id", id)
	return nil
}

// Delete removes an override unconditionally, active or not.
func (m *Manager) Delete(id string) error {
	if err := m.store.Delete(id); err != nil {
		return dataset.WrapError(dataset.CodeDatabaseError, "deleting override", err)
	}
	slog.Info("override deleted", "id", id)
	return nil
}

// ActiveBundle returns the parsed bundle of the active override, if any.
func (m *Manager) ActiveBundle() (*dataset.Bundle, bool, error) {
	rec, ok, err := m.store.Active()
	if err != nil {
		return nil, false, dataset.WrapError(dataset.CodeDatabaseError, "resolving active override", err)
	}
	if !ok {
		return nil, false, nil
	}

	bundle, decErr := dataset.DecodeBundle([]byte(rec.JSONText))
	if decErr != nil {
		// Stored overrides passed validation at import; a decode failure
		// here means the stored text was corrupted.
		return nil, false, fmt.Errorf("decoding active override %s: %w", rec.ID, decErr)
	}
	return bundle, true, nil
}

// unwrapEnvelope extracts the dataset field from an export envelope, or
// returns the payload unchanged when it is not wrapped. A payload
// carrying any top-level collection key is already a bundle and is
// never unwrapped, matching how upload validation classifies files.
func unwrapEnvelope(rawJSON []byte) []byte {
	parsed := gjson.ParseBytes(rawJSON)
	for _, name := range dataset.Collections {
		if parsed.Get(name).Exists() {
			return rawJSON
		}
	}
	if ds := parsed.Get("dataset"); ds.IsObject() {
		return []byte(ds.Raw)
	}
	return rawJSON
}
