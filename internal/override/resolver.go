package override

import (
	"time"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
)

// Resolver yields the currently authoritative bundle: the active
// override when one exists, else the loader's baked-in seed dataset.
type Resolver struct {
	Loader  *dataset.Loader
	Manager *Manager
}

// NewResolver creates a resolver over a loader and an override manager.
func NewResolver(loader *dataset.Loader, manager *Manager) *Resolver {
	return &Resolver{Loader: loader, Manager: manager}
}

// Bundle returns the authoritative dataset bundle.
func (r *Resolver) Bundle() (*dataset.Bundle, error) {
	bundle, ok, err := r.Manager.ActiveBundle()
	if err != nil {
		return nil, err
	}
	if ok {
		return bundle, nil
	}
	return r.Loader.Dataset()
}

// Export wraps the authoritative bundle in the versioned export
// envelope. The source bundle is already known-valid, having passed
// validation at import or load time, so nothing is re-checked.
func (r *Resolver) Export(now time.Time) (dataset.Export, error) {
	bundle, err := r.Bundle()
	if err != nil {
		return dataset.Export{}, err
	}
	return dataset.NewExport(bundle, now), nil
}
