package repo

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotConfigured means the repository is missing something it needs
	// before it can commit or unlock: its object store, its key directory,
	// or a usable key.
	ErrNotConfigured = errors.New("repository not configured")

	ErrNotRepository   = errors.New("not a cryptogot repository (or any parent up to /)")
	ErrNothingToCommit = errors.New("nothing to commit")
	ErrNoHead          = fmt.Errorf("no commits yet: %w", os.ErrNotExist)
)

// ConfigError names the resource that is missing.
type ConfigError struct {
	Resource string
	Path     string
	Err      error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s missing", ErrNotConfigured, e.Resource)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}
