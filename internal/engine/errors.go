package engine

import (
	"errors"
	"fmt"
	"strings"

	"phasegate/internal/repo"
)

var (
	// ErrNotFound is returned when a target id does not resolve.
	ErrNotFound = repo.ErrNotFound
	// ErrAlreadyInitialized is returned when a project's workflow phases or
	// quality gates already exist.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrInvalidPayload wraps deliverables data that does not parse.
	ErrInvalidPayload = errors.New("invalid deliverables payload")
	// ErrDuplicatePhase is returned when a project already has a phase of the
	// requested type.
	ErrDuplicatePhase = errors.New("phase already exists for project")
)

// ValidationError rejects an unrecognized enum value or a missing field.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	msg := fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	if len(e.Allowed) > 0 {
		msg += " (allowed: " + strings.Join(e.Allowed, ", ") + ")"
	}
	return msg
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

type enum interface {
	~string
	Valid() bool
}

func checkEnum[T enum](field string, v T, allowed []T) error {
	if v.Valid() {
		return nil
	}
	out := make([]string, len(allowed))
	for i, a := range allowed {
		out[i] = string(a)
	}
	return ValidationError{Field: field, Value: string(v), Allowed: out}
}

func isCallerError(err error) bool {
	var ve ValidationError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyInitialized) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrDuplicatePhase) ||
		errors.As(err, &ve)
}
