package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the core. Packages wrap these with %w so
// callers can branch with errors.Is regardless of which layer failed.
var (
	// ErrNotFound: the referenced account, request, session or grant is
	// absent (or conceptually gone, e.g. an already-terminated session).
	ErrNotFound = errors.New("not found")

	// ErrConflict: a precondition failed at commit time, typically because
	// a concurrent caller won the race. The batch was not applied.
	ErrConflict = errors.New("conflict")

	// ErrValidation: missing or malformed identifiers or fields.
	ErrValidation = errors.New("validation failed")

	// ErrTransientStore: a network or store-level failure; the whole
	// operation is safe to retry.
	ErrTransientStore = errors.New("transient store failure")

	// ErrConfiguration: inconsistent or invalid configuration detected at
	// startup.
	ErrConfiguration = errors.New("invalid configuration")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

func Transientf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransientStore)...)
}

func Configurationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConfiguration)...)
}
