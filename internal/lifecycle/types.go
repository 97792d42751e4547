package lifecycle

import (
	"time"

	"predictd/internal/config"
)

// Status is the lifecycle state of the model/tokenizer pair.
type Status string

const (
	StatusNotLoaded Status = "not_loaded"
	StatusLoading   Status = "loading"
	StatusLoaded    Status = "loaded"
	StatusError     Status = "error"
)

// ModelInfo describes the capability once a runtime is up.
type ModelInfo struct {
	Name       string
	Path       string
	VocabSize  int
	EOSTokenID int
	// PadTokenID is always usable: a runtime reporting no pad token gets the
	// EOS token id filled in here.
	PadTokenID int
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	Status    Status
	ModelName string
	Profile   config.Profile
	Err       string
	LoadedAt  time.Time
	StartedAt time.Time
}

// Loaded reports whether both model and tokenizer handles are present.
// They are set together or not at all.
func (s Snapshot) Loaded() bool { return s.Status == StatusLoaded }

// LoadOutcome is the result of an explicit load trigger.
type LoadOutcome struct {
	// Status is one of already_loaded, already_loading, success, error.
	Status string
	// Message carries the failure detail for the error status.
	Message string
}

const (
	OutcomeAlreadyLoaded  = "already_loaded"
	OutcomeAlreadyLoading = "already_loading"
	OutcomeSuccess        = "success"
	OutcomeError          = "error"
)
