package analyzer

import "errors"

// ConfigurationError indicates the analysis could not run with the supplied
// inputs: an empty endpoint set, a negative window, and similar caller
// mistakes. Data-quality problems in the log stream never produce one; those
// are tolerated and counted in Diagnostics instead.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "analyzer: " + e.Reason
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
