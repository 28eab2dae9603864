package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrNotPDF          = errors.New("not a PDF document")
	ErrEmptyExtraction = errors.New("extraction yielded no text")
	ErrEmptyAnswer     = errors.New("model returned an empty answer")
	ErrNoResults       = errors.New("no category produced any result")
)

// ConfigError reports invalid caller input or configuration.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DocumentLoadError is returned when a document is missing, unreadable,
// not a PDF, or yields no text. It degrades the category to skipped.
type DocumentLoadError struct {
	Path     string
	Category Category
	Err      error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("load %s document %q: %v", e.Category, e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// AnswerGenerationError wraps a model failure for one question.
type AnswerGenerationError struct {
	Category Category
	Index    int
	Question string
	Err      error
}

func (e *AnswerGenerationError) Error() string {
	return fmt.Sprintf("%s question %d: answer generation failed: %v", e.Category, e.Index, e.Err)
}

func (e *AnswerGenerationError) Unwrap() error { return e.Err }

// SessionError is fatal to a session. Results holds whatever completed.
type SessionError struct {
	Reason  string
	Results *SessionResults
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return "session failed: " + e.Reason
	}
	return fmt.Sprintf("session failed: %s: %v", e.Reason, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
