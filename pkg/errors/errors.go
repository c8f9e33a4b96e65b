// Package errors provides the typed errors shared by the smtindex build
// pipeline, the merge engine and the query server. Each type reports a
// sentinel through Is so callers can branch with errors.Is without caring
// which layer produced the failure.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard library helpers, re-exported so callers need a single import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinels.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoSources         = errors.New("no source records")
	ErrCollision         = errors.New("identifier collision")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrTimeout           = errors.New("operation timed out")
	ErrCanceled          = errors.New("operation canceled")
	ErrNotReady          = errors.New("index not ready")
)

// NotFoundError reports a missing template, version or file.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports a rejected option, flag or query parameter.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// InputError is returned by the merger when its inputs cannot produce a
// trustworthy index: both sources empty, or source metadata incomplete.
type InputError struct {
	Source  string
	Field   string
	Message string
	Err     error
}

func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString("merge input")
	if e.Source != "" {
		b.WriteString(" from " + e.Source)
	}
	if e.Field != "" {
		b.WriteString(" (" + e.Field + ")")
	}
	b.WriteString(": " + e.Message)
	return b.String()
}

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// NewInputError creates an InputError for a source metadata field.
func NewInputError(source, field, message string) *InputError {
	return &InputError{Source: source, Field: field, Message: message}
}

// CollisionError reports template groups that still share an identifier
// after disambiguation.
type CollisionError struct {
	ID   string
	Keys []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("identifier %s is claimed by %d templates: %s", e.ID, len(e.Keys), strings.Join(e.Keys, ", "))
}

func (e *CollisionError) Is(target error) bool { return target == ErrCollision }

// NewCollisionError creates a CollisionError.
func NewCollisionError(id string, keys []string) *CollisionError {
	return &CollisionError{ID: id, Keys: keys}
}

// FetchError reports an upstream source that could not be retrieved.
// StatusCode is zero when no HTTP response arrived.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	where := e.Source
	switch {
	case e.URL != "" && e.StatusCode != 0:
		where = fmt.Sprintf("%s (%s, HTTP %d)", e.Source, e.URL, e.StatusCode)
	case e.URL != "":
		where = fmt.Sprintf("%s (%s)", e.Source, e.URL)
	}
	return "fetching " + where + ": " + e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrSourceUnavailable }

// NewFetchError creates a FetchError for an HTTP failure.
func NewFetchError(source, url string, statusCode int, message string) *FetchError {
	return &FetchError{Source: source, URL: url, StatusCode: statusCode, Message: message}
}

// TimeoutError reports an operation cut off by its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

func (e *TimeoutError) Error() string {
	if e.Duration == "" {
		return fmt.Sprintf("%s timed out: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s timed out after %s: %s", e.Operation, e.Duration, e.Message)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration, Message: message}
}

// ConfigError reports a bad config file, environment variable or flag
// combination.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config (%s): %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError reports malformed input: registry HTML, a repository archive,
// a snapshot or an index file.
type ParseError struct {
	Format  string // json, yaml, html, zip
	File    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("parsing %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("parsing %s %s: %s", e.Format, e.File, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a ParseError.
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError reports a failed filesystem operation.
type IOError struct {
	Operation string // read, write, create, rename
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ResourceError reports a failed step on a named resource, such as
// loading the index or merging the sources.
type ResourceError struct {
	Operation string // build, load, fetch, merge
	Resource  string // index, registry, repository, template
	ID        string
	Message   string
	Err       error
}

func (e *ResourceError) Error() string {
	target := e.Resource
	if e.ID != "" {
		target += " " + e.ID
	}
	return fmt.Sprintf("%s %s: %s", e.Operation, target, e.Message)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports whether err rejects its input.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsCollision reports whether err is an unresolved identifier collision.
func IsCollision(err error) bool { return errors.Is(err, ErrCollision) }

// IsNoSources reports whether both sources were empty.
func IsNoSources(err error) bool { return errors.Is(err, ErrNoSources) }

// IsTimeout reports whether err is a deadline failure.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCanceled reports whether err stems from cancellation.
func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

// WrapIO wraps err as an IOError. It returns nil for a nil err, as do the
// other Wrap helpers.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapResource wraps err as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: err.Error(), Err: err}
}

// WrapParse wraps err as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFetch wraps a transport error as a FetchError.
func WrapFetch(source, url string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Source: source, URL: url, Message: err.Error(), Err: err}
}
