package warden

import (
	"errors"
	"io"
	"log/slog"
)

// Sentinel errors for the two ways validation inputs can be unusable.
// These errors can be used with errors.Is() for error checking; the cause
// stays wrapped underneath.
var (
	// ErrInvalidDefinition indicates the schema definition does not compile.
	// The wrapped error is a *schema.ConfigError carrying the schema path
	// and a stable error code.
	ErrInvalidDefinition = errors.New("invalid schema definition")

	// ErrInvalidDocument indicates the document is not valid JSON and could
	// not be decoded.
	ErrInvalidDocument = errors.New("invalid document")
)

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements to ensure
// cleanup errors are not silently ignored.
//
// The name parameter should describe the resource being closed (e.g.,
// "queue client", "registry client"). If logger is nil, slog.Default() is
// used.
//
// Example usage:
//
//	defer warden.CloseWithLog(client, logger, "queue client")
//	defer warden.CloseWithLog(reg, logger, "registry client")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
