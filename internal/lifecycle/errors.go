package lifecycle

// modelUnavailableError signals that the model is not loaded and could not be
// loaded, so the HTTP layer can return 503 Service Unavailable.
type modelUnavailableError struct{ msg string }

func (e modelUnavailableError) Error() string { return e.msg }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(msg string) error { return modelUnavailableError{msg: msg} }

// IsModelUnavailable reports whether err indicates a missing/failed model load.
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// tooBusyError signals queue timeout/overflow on the inference slot for 429
// mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "inference queue is full, retry later" }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy() error { return tooBusyError{} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}
