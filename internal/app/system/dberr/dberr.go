// internal/app/system/dberr/dberr.go

// Package dberr translates persistence failures into the small fixed
// set of categories surfaced to operators. Handlers and the commit
// engine report the category plus the step that failed; the raw error
// stays in the logs.
package dberr

import (
	"context"
	"errors"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Category is a user-facing failure class.
type Category string

const (
	Duplicate        Category = "duplicate"
	InvalidReference Category = "invalid_reference"
	MissingField     Category = "missing_required_field"
	PermissionDenied Category = "permission_denied"
	NotFound         Category = "not_found"
	Generic          Category = "generic"
)

// Error pairs a category with the step of the operation that failed,
// wrapping the underlying cause.
type Error struct {
	Category Category
	Step     string
	Err      error
}

func (e *Error) Error() string {
	if e.Step == "" {
		return string(e.Category) + ": " + e.Err.Error()
	}
	return string(e.Category) + " at " + e.Step + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err and tags it with the failing step. A nil err
// returns nil.
func Wrap(step string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: Classify(err), Step: step, Err: err}
}

// Classify maps a raw persistence error to its category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return Generic
	case wafflemongo.IsDup(err):
		return Duplicate
	case errors.Is(err, mongo.ErrNoDocuments):
		return NotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Generic
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			switch e.Code {
			case 11000, 11001:
				return Duplicate
			case 121: // document validation
				return MissingField
			case 13: // unauthorized
				return PermissionDenied
			}
		}
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 13 {
		return PermissionDenied
	}

	return Generic
}

// CategoryOf extracts the category from a wrapped error, defaulting to
// Generic for anything unclassified.
func CategoryOf(err error) Category {
	var de *Error
	if errors.As(err, &de) {
		return de.Category
	}
	return Classify(err)
}

// StepOf extracts the failing step name, if one was recorded.
func StepOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Step
	}
	return ""
}
