// Package errors defines the error taxonomy of the orchestration
// core. Handlers branch on these kinds to decide between retrying,
// failing, and surfacing a structured message to the caller.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// referenced entity does not exist
	ErrMissing = errors.New("missing")

	// entity already exists, or an optimistic write lost the race
	ErrConflict = errors.New("conflict")

	// caller lacks rights
	ErrPermission = errors.New("permission denied")
)

// Validation signals that input violates a stated invariant. Fields
// maps field name to what is wrong with it.
type Validation struct {
	Fields map[string]string
}

func NewValidation(field string, problem string) *Validation {
	return &Validation{Fields: map[string]string{field: problem}}
}

func (v *Validation) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for f, p := range v.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, p))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func AsValidation(err error) (*Validation, bool) {
	v := new(Validation)
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// CloudErrorKind classifies failures from the cloud plane.
type CloudErrorKind string

const (
	CloudThrottled  CloudErrorKind = "throttled"
	CloudTransient  CloudErrorKind = "transient"
	CloudValidation CloudErrorKind = "validation"
	CloudDenied     CloudErrorKind = "denied"
	CloudNotFound   CloudErrorKind = "not-found"
	CloudConflict   CloudErrorKind = "conflict"
)

// CloudError wraps a cloud API failure. Retryable errors re-raise on
// the task path so the broker redelivers; the request path retries
// inline up to a bounded count.
type CloudError struct {
	Kind      CloudErrorKind
	Retryable bool
	Cause     error
}

func (e *CloudError) Error() string {
	return fmt.Sprintf("cloud error (%s, retryable=%t): %v", e.Kind, e.Retryable, e.Cause)
}

func (e *CloudError) Unwrap() error {
	return e.Cause
}

func NewCloudError(kind CloudErrorKind, retryable bool, cause error) *CloudError {
	return &CloudError{Kind: kind, Retryable: retryable, Cause: cause}
}

func AsCloudError(err error) (*CloudError, bool) {
	c := new(CloudError)
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// IdentityErrorKind classifies failures from the identity plane.
type IdentityErrorKind string

const (
	IdentityConflict     IdentityErrorKind = "conflict"
	IdentityNotFound     IdentityErrorKind = "not-found"
	IdentityRateLimited  IdentityErrorKind = "rate-limited"
	IdentityUnauthorised IdentityErrorKind = "unauthorised"
)

type IdentityError struct {
	Kind  IdentityErrorKind
	Cause error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity error (%s): %v", e.Kind, e.Cause)
}

func (e *IdentityError) Unwrap() error {
	return e.Cause
}

func NewIdentityError(kind IdentityErrorKind, cause error) *IdentityError {
	return &IdentityError{Kind: kind, Cause: cause}
}

func AsIdentityError(err error) (*IdentityError, bool) {
	i := new(IdentityError)
	if errors.As(err, &i) {
		return i, true
	}
	return nil, false
}

// Retryable reports whether the task path should re-raise err so that
// the broker redelivers the message.
func Retryable(err error) bool {
	if c, ok := AsCloudError(err); ok {
		return c.Retryable
	}
	if i, ok := AsIdentityError(err); ok {
		return i.Kind == IdentityRateLimited
	}
	return false
}
