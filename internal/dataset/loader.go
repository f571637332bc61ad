package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader reads the seed dataset from a directory of collection files and
// caches the validated result for the lifetime of the Loader. Construct
// one at startup and pass it by reference; Invalidate exists for tests.
type Loader struct {
	dir string

	mu     sync.Mutex
	bundle *Bundle
	err    error
}

// CacheStats reports the loader cache state for monitoring.
type CacheStats struct {
	Cached bool `json:"cached"`
	Error  bool `json:"error"`
}

// NewLoader creates a loader over a seed directory. Nothing is read
// until the first LoadSeed or Dataset call.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadSeed reads the six collection files and assembles them into a
// bundle without validating. Each collection lives in <name>.json or
// <name>.yaml under the seed directory.
func (l *Loader) LoadSeed() (*Bundle, error) {
	raw, err := l.assemble()
	if err != nil {
		return nil, err
	}
	return DecodeBundle(raw)
}

// Dataset returns the validated seed bundle, loading it on first call.
// Subsequent calls return the identical cached instance. A load or
// validation failure is cached as well and re-raised until Invalidate,
// so known-bad data is not re-parsed on every request.
func (l *Loader) Dataset() (*Bundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bundle != nil {
		return l.bundle, nil
	}
	if l.err != nil {
		return nil, l.err
	}

	bundle, err := l.loadValidated()
	if err != nil {
		l.err = err
		return nil, err
	}
	l.bundle = bundle
	return bundle, nil
}

func (l *Loader) loadValidated() (*Bundle, error) {
	raw, err := l.assemble()
	if err != nil {
		return nil, err
	}

	fieldErrs, err := ValidateStructure(raw)
	if err != nil {
		return nil, WrapError(CodeLoadFailed, "validating seed dataset", err)
	}
	if len(fieldErrs) > 0 {
		paths := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			paths = append(paths, fe.PathString())
		}
		return nil, NewError(CodeValidationFailed, "seed data failed validation").
			WithContext("violations", len(fieldErrs)).
			WithContext("paths", paths)
	}

	bundle, decErr := DecodeBundle(raw)
	if decErr != nil {
		return nil, decErr
	}

	slog.Info("dataset loaded",
		"courseBlocks", len(bundle.CourseBlocks),
		"drugs", len(bundle.Drugs),
		"questions", len(bundle.Questions),
		"cases", len(bundle.Cases),
		"interactions", len(bundle.Interactions),
		"doseTemplates", len(bundle.DoseTemplates),
	)
	return bundle, nil
}

// DatasetSafe never fails. On any load or validation error it logs and
// returns fallback, which may be nil.
func (l *Loader) DatasetSafe(fallback *Bundle) *Bundle {
	bundle, err := l.Dataset()
	if err != nil {
		slog.Error("failed to load dataset", "error", err)
		return fallback
	}
	return bundle
}

// DatasetWithTimeout bounds Dataset by a deadline derived from ctx.
// A defensive bound against slow storage, not a cancellation mechanism:
// a losing load still completes in the background and populates the cache.
func (l *Loader) DatasetWithTimeout(ctx context.Context, timeout time.Duration) (*Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		bundle *Bundle
		err    error
	}

	done := make(chan result, 1)
	go func() {
		b, err := l.Dataset()
		done <- result{bundle: b, err: err}
	}()

	select {
	case res := <-done:
		return res.bundle, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError(CodeLoadFailed, "dataset load timeout").
				WithContext("timeout", timeout.String())
		}
		return nil, WrapError(CodeLoadFailed, "dataset load canceled", ctx.Err())
	}
}

// Invalidate clears the cached bundle and cached error, forcing the next
// Dataset call to re-load and re-validate.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bundle = nil
	l.err = nil
}

// IsCached reports whether a validated bundle is currently cached.
func (l *Loader) IsCached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bundle != nil
}

// Stats returns the cache state for monitoring.
func (l *Loader) Stats() CacheStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CacheStats{Cached: l.bundle != nil, Error: l.err != nil}
}

// assemble reads the six collection files concurrently and splices them
// into one bundle document. The reads are mutually independent, so order
// of completion does not matter; the output key order is fixed.
func (l *Loader) assemble() ([]byte, error) {
	raws := make([]json.RawMessage, len(Collections))
	errs := make([]error, len(Collections))

	var wg sync.WaitGroup
	for i, name := range Collections {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raws[i], errs[i] = l.readCollection(name)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range Collections {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", name)
		buf.Write(raws[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// readCollection loads one collection as raw JSON. JSON files are used
// verbatim; YAML files are converted.
func (l *Loader) readCollection(name string) (json.RawMessage, error) {
	jsonPath := filepath.Join(l.dir, name+".json")
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		if !json.Valid(data) {
			return nil, NewError(CodeParseFailed, fmt.Sprintf("collection %s is not valid JSON", name)).
				WithContext("file", jsonPath)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, WrapError(CodeLoadFailed, fmt.Sprintf("reading collection %s", name), err)
	}

	yamlPath := filepath.Join(l.dir, name+".yaml")
	data, yamlErr := os.ReadFile(yamlPath)
	if yamlErr != nil {
		if os.IsNotExist(yamlErr) {
			return nil, NewError(CodeFileNotFound, fmt.Sprintf("collection %s not found", name)).
				WithContext("dir", l.dir)
		}
		return nil, WrapError(CodeLoadFailed, fmt.Sprintf("reading collection %s", name), yamlErr)
	}

	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, WrapError(CodeParseFailed, fmt.Sprintf("collection %s is not valid YAML", name), err).
			WithContext("file", yamlPath)
	}
	raw, err := json.Marshal(decoded)
	if err != nil {
		return nil, WrapError(CodeParseFailed, fmt.Sprintf("converting collection %s", name), err)
	}
	return raw, nil
}
