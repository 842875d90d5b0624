package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrTagsRequired = &ValidationError{Field: "tags", Reason: "at least one tag is required"}
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate checks the fields a caller must supply before the task reaches
// the engine, and fills in the default priority.
func (n *NewTask) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	n.DueDate = strings.TrimSpace(n.DueDate)

	if n.Title == "" || n.Description == "" {
		return &ValidationError{Field: "title", Reason: "title and description required"}
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !n.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", n.Priority)}
	}
	if err := ValidateDueDate(n.DueDate); err != nil {
		return err
	}
	return nil
}

func ValidateDueDate(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return &ValidationError{Field: "dueDate", Reason: "invalid due date, want YYYY-MM-DD"}
	}
	return nil
}
