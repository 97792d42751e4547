package predict

// inputError signals a tokenization-level problem with an otherwise valid
// phrase (400 mapping).
type inputError struct{ msg string }

func (e inputError) Error() string { return e.msg }

// IsInputProcessing reports whether err is an input-processing failure.
func IsInputProcessing(err error) bool {
	_, ok := err.(inputError)
	return ok
}

// inferenceError signals a forward-pass failure. Request-fatal, not retried.
type inferenceError struct{ msg string }

func (e inferenceError) Error() string { return e.msg }

// IsInference reports whether err is an inference failure.
func IsInference(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}

// noValidPredictionsError means every candidate was filtered out. The request
// fails rather than returning an empty-but-successful response.
type noValidPredictionsError struct{}

func (noValidPredictionsError) Error() string { return "no valid word predictions available" }

// IsNoValidPredictions reports whether err indicates fully-filtered output.
func IsNoValidPredictions(err error) bool {
	_, ok := err.(noValidPredictionsError)
	return ok
}
