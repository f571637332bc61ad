package dataset

import (
	"encoding/json"
	"time"
)

// ExportVersion is the stable version tag of the export envelope.
const ExportVersion = "1.0"

// Export is the versioned envelope wrapping a dataset for download.
type Export struct {
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
	Dataset    *Bundle   `json:"dataset"`
}

// NewExport wraps an already-valid bundle in an export envelope. Pure
// serialization; no validation happens here.
func NewExport(bundle *Bundle, now time.Time) Export {
	return Export{
		ExportedAt: now.UTC(),
		Version:    ExportVersion,
		Dataset:    bundle,
	}
}

// MarshalIndent renders the envelope as pretty-printed JSON, matching
// the downloadable attachment format.
func (e Export) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}
