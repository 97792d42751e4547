package lifecycle

import "context"

// Runtime is the opaque model/tokenizer capability. Implementations must be
// safe for concurrent Encode/Decode calls; Logits is serialized by the
// manager's admission gate and never runs more than once concurrently.
type Runtime interface {
	// Encode tokenizes text into model-vocabulary token ids.
	Encode(ctx context.Context, text string) ([]int, error)
	// Logits runs a single forward pass and returns the logit vector for the
	// last sequence position.
	Logits(ctx context.Context, ids []int) ([]float32, error)
	// Decode renders a single token id as text.
	Decode(ctx context.Context, id int) (string, error)
	// Info describes the loaded model.
	Info() ModelInfo
	// Close releases the runtime and any process behind it.
	Close() error
}
