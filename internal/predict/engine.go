package predict

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"predictd/internal/lifecycle"
	"predictd/internal/sanitize"
	"predictd/pkg/types"
)

const (
	// encodeCeiling is the hard tokenizer truncation limit.
	encodeCeiling = 512
	// maxPromptTokens is the stricter domain limit; longer prompts are
	// rejected outright to keep forward-pass latency bounded.
	maxPromptTokens = 100

	defaultTopK = 5
	maxTopK     = 10
)

// ModelSource is the slice of the lifecycle manager the engine needs.
// *lifecycle.Manager satisfies it; tests substitute a double.
type ModelSource interface {
	EnsureLoaded(ctx context.Context) error
	Runtime() lifecycle.Runtime
	AcquireSlot(ctx context.Context) (func(), error)
}

// Engine orchestrates sanitize -> encode -> forward -> rank -> decode ->
// filter -> assemble for a single request.
type Engine struct {
	src ModelSource
	log zerolog.Logger
}

// NewEngine constructs an Engine over a model source.
func NewEngine(src ModelSource, logger *zerolog.Logger) *Engine {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Engine{src: src, log: log}
}

// Predict returns the top-k next-token candidates for the request phrase.
func (e *Engine) Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	var resp types.PredictResponse

	phrase, err := sanitize.Clean(req.InputPhrase)
	if err != nil {
		return resp, err
	}
	k := clampTopK(req.TopKTokens)

	if err := e.src.EnsureLoaded(ctx); err != nil {
		return resp, err
	}
	rt := e.src.Runtime()
	if rt == nil {
		return resp, lifecycle.ErrModelUnavailable("model not loaded")
	}

	ids, err := rt.Encode(ctx, phrase)
	if err != nil {
		e.log.Debug().Err(err).Msg("tokenization failed")
		return resp, inputError{msg: "failed to tokenize input phrase"}
	}
	if len(ids) > encodeCeiling {
		ids = ids[:encodeCeiling]
	}
	if len(ids) > maxPromptTokens {
		return resp, inputError{msg: "input phrase is too long to process"}
	}
	if len(ids) == 0 {
		return resp, inputError{msg: "input phrase produced no tokens"}
	}

	release, err := e.src.AcquireSlot(ctx)
	if err != nil {
		return resp, err
	}
	defer release()

	logits, err := rt.Logits(ctx, ids)
	if err != nil {
		e.log.Error().Err(err).Msg("forward pass failed")
		return resp, inferenceError{msg: "inference failed"}
	}

	probs := Softmax(logits)
	predictions := make([]types.Prediction, 0, k)
	for _, id := range TopK(probs, k) {
		word, derr := rt.Decode(ctx, id)
		if derr != nil {
			// One bad candidate never fails the request.
			e.log.Debug().Err(derr).Int("token_id", id).Msg("decode failed, dropping candidate")
			continue
		}
		cleaned, ok := CleanToken(word)
		if !ok {
			continue
		}
		predictions = append(predictions, types.Prediction{
			Word:        cleaned,
			Probability: probs[id],
			TokenID:     id,
		})
	}
	if len(predictions) == 0 {
		return resp, noValidPredictionsError{}
	}

	resp.Predictions = predictions
	resp.InputPhrase = phrase
	resp.CompleteSentence = strings.TrimSpace(phrase + " " + predictions[0].Word)
	return resp, nil
}

func clampTopK(k int) int {
	switch {
	case k <= 0:
		return defaultTopK
	case k > maxTopK:
		return maxTopK
	default:
		return k
	}
}
