package registry

// modelNotFoundError indicates no stored model matched the identifier.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing stored model.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// invalidDestinationError signals a copy destination that is not a bare
// file name.
type invalidDestinationError struct{ dest string }

func (e invalidDestinationError) Error() string { return "invalid destination: " + e.dest }

// IsInvalidDestination reports whether err rejects a copy destination.
func IsInvalidDestination(err error) bool {
	_, ok := err.(invalidDestinationError)
	return ok
}

// destinationExistsError signals a copy destination that already exists.
type destinationExistsError struct{ dest string }

func (e destinationExistsError) Error() string { return "destination exists: " + e.dest }

// IsDestinationExists reports whether err indicates a duplicate destination.
func IsDestinationExists(err error) bool {
	_, ok := err.(destinationExistsError)
	return ok
}

// pullInvalidError signals a malformed pull request (bad url or model name).
type pullInvalidError struct{ msg string }

func (e pullInvalidError) Error() string { return e.msg }

// IsPullInvalid reports whether err rejects a pull request up front.
func IsPullInvalid(err error) bool {
	_, ok := err.(pullInvalidError)
	return ok
}
