package session

// notLoadedError signals that no model is loaded and none was specified.
type notLoadedError struct{}

func (notLoadedError) Error() string { return "no model loaded" }

// IsNotLoaded reports whether err indicates the no-model condition (503).
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}

// busyError signals the single generation slot could not be acquired in time.
type busyError struct{}

func (busyError) Error() string { return "generation slot busy" }

// IsBusy reports whether err indicates generation backpressure.
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// runtimeUnavailableError signals a missing or failed model runtime so the
// HTTP layer can return 503 instead of 500.
type runtimeUnavailableError struct{ msg string }

func (e runtimeUnavailableError) Error() string { return e.msg }

// ErrRuntimeUnavailable constructs a runtimeUnavailableError.
func ErrRuntimeUnavailable(msg string) error { return runtimeUnavailableError{msg: msg} }

// IsRuntimeUnavailable reports whether err indicates a missing runtime.
func IsRuntimeUnavailable(err error) bool {
	_, ok := err.(runtimeUnavailableError)
	return ok
}
