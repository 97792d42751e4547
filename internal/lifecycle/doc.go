// Package lifecycle owns the process-wide model state machine and the
// runtime capability behind it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, snapshot/getters.
//   - types.go: Status, Snapshot, ModelInfo, LoadOutcome.
//   - errors.go: error types and helpers (IsModelUnavailable, IsTooBusy).
//   - ensure.go: EnsureLoaded/TriggerLoad and the single-flight load path.
//   - admission.go: bounded queueing for the single in-flight forward pass.
//   - runtime.go: the Runtime capability interface (encode/logits/decode).
//   - runtime_server.go: spawned llama-server subprocess runtime.
//
// State transitions are NotLoaded -> Loading -> {Loaded, Error}; Error is
// recoverable only through an explicit TriggerLoad. At most one load attempt
// is in flight at any time; concurrent EnsureLoaded callers wait on the same
// attempt and observe its outcome.
package lifecycle
