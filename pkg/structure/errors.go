package structure

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownProjectTypeError is returned when a project type id is not declared
// in the structure document. Parent is set when the missing id was referenced
// through an inherits clause.
type UnknownProjectTypeError struct {
	Name   string
	Parent string
}

func (e *UnknownProjectTypeError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("project type %q inherits unknown project type %q", e.Parent, e.Name)
	}
	return fmt.Sprintf("unknown project type %q", e.Name)
}

// SchemaCycleError reports an inheritance chain that loops back on itself.
type SchemaCycleError struct {
	Chain []string
}

func (e *SchemaCycleError) Error() string {
	return fmt.Sprintf("project type inheritance cycle: %s", strings.Join(e.Chain, " -> "))
}

// UnknownValidatorError is returned when a file requirement names a validator
// that is not in the catalog.
type UnknownValidatorError struct {
	ProjectType string
	Path        string
	Validator   string
}

func (e *UnknownValidatorError) Error() string {
	return fmt.Sprintf("project type %q: file %q references unknown validator %q", e.ProjectType, e.Path, e.Validator)
}

// PathNotFoundError is returned by Scan when the root does not exist or is not
// a directory.
type PathNotFoundError struct {
	Path   string
	Reason string
}

func (e *PathNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("path not found: %s (%s)", e.Path, e.Reason)
	}
	return fmt.Sprintf("path not found: %s", e.Path)
}

// DocumentError wraps a failure to decode or validate a structure document.
type DocumentError struct {
	Source  string
	Details []string
	Err     error
}

func (e *DocumentError) Error() string {
	msg := "invalid structure document"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return msg
}

func (e *DocumentError) Unwrap() error { return e.Err }

// ApplyError reports the filesystem failure that stopped a reconciliation
// batch. Changes applied before the failure are returned alongside it.
type ApplyError struct {
	Path string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Path, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// IsConfigError reports whether err stems from a broken structure document or
// an unknown project type.
func IsConfigError(err error) bool {
	var (
		unknownType *UnknownProjectTypeError
		cycle       *SchemaCycleError
		unknownVal  *UnknownValidatorError
		docErr      *DocumentError
	)
	return errors.As(err, &unknownType) ||
		errors.As(err, &cycle) ||
		errors.As(err, &unknownVal) ||
		errors.As(err, &docErr)
}

// IsPathNotFound reports whether err is a PathNotFoundError.
func IsPathNotFound(err error) bool {
	var notFound *PathNotFoundError
	return errors.As(err, &notFound)
}
