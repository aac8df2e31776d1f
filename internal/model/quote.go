// Package model defines the core quote data types.
package model

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// AllCategories is the category selector meaning "no filter".
	AllCategories = "all"

	// DefaultCategory is assigned to remote records that carry no category.
	DefaultCategory = "General"
)

// Quote is a text/category pair. Identity is the exact (Text, Category) pair.
type Quote struct {
	Text     string `json:"text" validate:"required"`
	Category string `json:"category" validate:"required"`
}

// Sentinel errors for use with errors.Is().
var (
	// ErrValidation indicates quote input failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates there is nothing to return (empty view, unknown index).
	ErrNotFound = errors.New("not found")
)

// ValidationError reports which field of a quote was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Unwrap returns ErrValidation for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// New trims text and category and validates the result.
func New(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}
	if err := validateQuote(q); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// Equal reports whether two quotes have identical text and category.
func (q Quote) Equal(other Quote) bool {
	return q.Text == other.Text && q.Category == other.Category
}

func (q Quote) String() string {
	return fmt.Sprintf("%q - %s", q.Text, q.Category)
}
