package pipeline

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline/cache"
)

var (
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	ErrWorkspaceMustBeSet = errors.New("workspace must be set")

	// ErrConfiguration reports an invalid step or pipeline declaration.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrMissingInput reports a step whose inputs are not in the workspace.
	ErrMissingInput = errors.New("missing input")
	// ErrMissingKey reports a lookup of a key the workspace does not hold.
	ErrMissingKey = errors.New("missing key")
	// ErrArtifactKind reports an artifact of an unexpected variant.
	ErrArtifactKind = errors.New("unexpected artifact kind")
	// ErrContractViolation reports a step touching keys it did not declare, or not writing an
	// output it declared.
	ErrContractViolation = errors.New("step contract violation")
	// ErrDegenerateFit reports an algorithm that ran out of usable data.
	ErrDegenerateFit = errors.New("degenerate fit")
	// ErrCacheCorruption reports a cached blob that cannot restore the step outputs.
	ErrCacheCorruption = cache.ErrCorrupt
)

// MissingInputError lists the inputs a step needs but the workspace lacks.
type MissingInputError struct {
	Step string
	Keys []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("step %s: missing input: %s", e.Step, strings.Join(e.Keys, ", "))
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput //nolint:errorlint
}

// CacheCorruptionError wraps the reason a cached blob was rejected.
type CacheCorruptionError struct {
	Step string
	Err  error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("step %s: %s: %v", e.Step, ErrCacheCorruption, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error {
	return e.Err
}

func (e *CacheCorruptionError) Is(target error) bool {
	return target == ErrCacheCorruption //nolint:errorlint
}
