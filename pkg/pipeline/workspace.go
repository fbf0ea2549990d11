package pipeline

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/signal"
)

// Reader gives read access to artifacts by key.
type Reader interface {
	Get(key string) (signal.Artifact, error)
}

// Workspace holds every artifact produced during a run. Keys are written once and never removed.
// It is not safe for concurrent use.
type Workspace struct {
	entries map[string]signal.Artifact
}

func NewWorkspace() *Workspace {
	return &Workspace{entries: map[string]signal.Artifact{}}
}

// Get returns the artifact stored under key.
func (w *Workspace) Get(key string) (signal.Artifact, error) {
	artifact, ok := w.entries[key]
	if !ok {
		return nil, errors.Wrap(ErrMissingKey, key)
	}

	return artifact, nil
}

func (w *Workspace) Has(key string) bool {
	_, ok := w.entries[key]

	return ok
}

// Put stores artifact under key. A key can only be written once.
func (w *Workspace) Put(key string, artifact signal.Artifact) error {
	if artifact == nil {
		return errors.Wrapf(ErrContractViolation, "nil artifact for %s", key)
	}
	if w.Has(key) {
		return errors.Wrapf(ErrContractViolation, "key %s already written", key)
	}

	w.entries[key] = artifact

	return nil
}

// Keys returns the stored keys in lexical order.
func (w *Workspace) Keys() []string {
	keys := make([]string, 0, len(w.entries))
	for key := range w.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}

func (w *Workspace) Len() int {
	return len(w.entries)
}

func (w *Workspace) TimeSeries(key string) (*signal.TimeSeries, error) {
	return Fetch[*signal.TimeSeries](w, key)
}

func (w *Workspace) Chunked(key string) (*signal.ChunkedTimeSeries, error) {
	return Fetch[*signal.ChunkedTimeSeries](w, key)
}

func (w *Workspace) Array(key string) (*signal.Array, error) {
	return Fetch[*signal.Array](w, key)
}

func (w *Workspace) Scalar(key string) (signal.Scalar, error) {
	return Fetch[signal.Scalar](w, key)
}

func (w *Workspace) Pairs(key string) (signal.Pairs, error) {
	return Fetch[signal.Pairs](w, key)
}

// Fetch reads key from r and checks its variant.
func Fetch[T signal.Artifact](r Reader, key string) (T, error) {
	var zero T

	artifact, err := r.Get(key)
	if err != nil {
		return zero, err
	}

	typed, ok := artifact.(T)
	if !ok {
		return zero, errors.Wrapf(ErrArtifactKind, "%s holds %s, want %T", key, artifact.Kind(), zero)
	}

	return typed, nil
}

var _ Reader = (*Workspace)(nil)
