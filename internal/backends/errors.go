package backends

// unknownBackendError signals a backend name we do not know.
type unknownBackendError struct{ name string }

func (e unknownBackendError) Error() string { return "unknown backend: " + e.name }

// IsUnknownBackend reports whether err names an unknown backend (404).
func IsUnknownBackend(err error) bool {
	_, ok := err.(unknownBackendError)
	return ok
}

// providerDisabledError signals selecting a remote provider that is off.
type providerDisabledError struct{ name string }

func (e providerDisabledError) Error() string { return "provider disabled: " + e.name }

// IsProviderDisabled reports a disabled-provider precondition failure (409).
func IsProviderDisabled(err error) bool {
	_, ok := err.(providerDisabledError)
	return ok
}

// missingAPIKeyError signals enabling a provider with no stored credential.
type missingAPIKeyError struct{ name string }

func (e missingAPIKeyError) Error() string { return "missing api key: " + e.name }

// IsMissingAPIKey reports the missing-credential precondition failure (422).
func IsMissingAPIKey(err error) bool {
	_, ok := err.(missingAPIKeyError)
	return ok
}

// deviceRequirementsError signals unmet on-device requirements.
type deviceRequirementsError struct{}

func (deviceRequirementsError) Error() string { return "device requirements unmet" }

// IsDeviceRequirements reports the unmet-device precondition failure (428).
func IsDeviceRequirements(err error) bool {
	_, ok := err.(deviceRequirementsError)
	return ok
}

// unsupportedPlatformError signals a backend this platform can never run.
type unsupportedPlatformError struct{}

func (unsupportedPlatformError) Error() string { return "unsupported platform" }

// IsUnsupportedPlatform reports the not-implemented condition (501).
func IsUnsupportedPlatform(err error) bool {
	_, ok := err.(unsupportedPlatformError)
	return ok
}
