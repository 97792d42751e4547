package types

// PredictRequest is the payload for POST /api/predict.
type PredictRequest struct {
	// Input phrase to predict the next token for.
	// example: The capital of France is
	InputPhrase string `json:"input_phrase" example:"The capital of France is"`
	// Number of top predictions to return. Clamped to [1, 10]; defaults to 5.
	// example: 5
	TopKTokens int `json:"top_k_tokens,omitempty" example:"5"`
}

// Prediction is one candidate next token.
type Prediction struct {
	// Decoded token text after filtering.
	// example: Paris
	Word string `json:"word" example:"Paris"`
	// Softmax probability in [0, 1].
	// example: 0.42
	Probability float64 `json:"probability" example:"0.42"`
	// Token id in the model vocabulary.
	// example: 3681
	TokenID int `json:"token_id" example:"3681"`
}

// PredictResponse is returned by POST /api/predict on success.
type PredictResponse struct {
	// Candidates in descending probability order.
	Predictions []Prediction `json:"predictions"`
	// Sanitized input phrase echoed back.
	// example: The capital of France is
	InputPhrase string `json:"input_phrase" example:"The capital of France is"`
	// Input phrase completed with the best surviving prediction.
	// example: The capital of France is Paris
	CompleteSentence string `json:"complete_sentence" example:"The capital of France is Paris"`
}

// HealthResponse is returned by GET /health and GET /api/health. Always 200.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// example: true
	TokenizerLoaded bool `json:"tokenizer_loaded" example:"true"`
	// Lifecycle status: not_loaded, loading, loaded, error.
	// example: loaded
	ModelLoadingStatus string `json:"model_loading_status" example:"loaded"`
	// example: smollm2-1.7b.gguf
	ModelName string `json:"model_name,omitempty" example:"smollm2-1.7b.gguf"`
	// Server time in unix seconds.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
	// example: 1.0.0
	Version string `json:"version,omitempty" example:"1.0.0"`
}

// MessageResponse is a minimal liveness payload for GET /api.
type MessageResponse struct {
	// example: next-token prediction API is running
	Message string `json:"message" example:"next-token prediction API is running"`
}

// ModelStatusResponse is returned by GET /api/model/status.
type ModelStatusResponse struct {
	// Lifecycle status: not_loaded, loading, loaded, error.
	// example: loaded
	Status string `json:"status" example:"loaded"`
	// Resolved model name for the current/last load attempt.
	// example: smollm2-1.7b.gguf
	ModelName string `json:"model_name,omitempty" example:"smollm2-1.7b.gguf"`
	// Deployment profile that drove model selection: local or constrained.
	// example: local
	Profile string `json:"profile" example:"local"`
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// example: true
	TokenizerLoaded bool `json:"tokenizer_loaded" example:"true"`
	// Last load error, if the lifecycle is in the error state.
	Error string `json:"error,omitempty"`
	// Unix seconds of the last successful load, 0 if never loaded.
	// example: 1700000000
	LoadedAtUnix int64 `json:"loaded_at_unix,omitempty" example:"1700000000"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// LoadResponse is returned by POST /api/model/load. The endpoint never
// surfaces a non-200 status; failures are reported in the payload.
type LoadResponse struct {
	// One of: already_loaded, already_loading, success, error.
	// example: success
	Status string `json:"status" example:"success"`
	// Human-readable detail, set for the error status.
	Message string `json:"message,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: input phrase cannot be empty
	Error string `json:"error" example:"input phrase cannot be empty"`
	// Optional extra detail, set on rate-limit rejections.
	Detail string `json:"detail,omitempty"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Seconds until the client may retry, set on 429 responses.
	RetryAfterSeconds int64 `json:"retry_after_seconds,omitempty"`
}
