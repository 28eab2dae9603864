package domain

import (
	"fmt"
	"strings"
)

// Category is one of the three fixed language/model tracks.
type Category string

const (
	Foundation    Category = "foundation"
	Indic         Category = "indic"
	International Category = "international"
)

// Categories lists every category in canonical order. Table columns and
// reports follow this order.
func Categories() []Category {
	return []Category{Foundation, Indic, International}
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case Foundation, Indic, International:
		return true
	}
	return false
}

// Language returns the BCP 47 tag of the language a category answers in.
func (c Category) Language() string {
	switch c {
	case Foundation:
		return "en"
	case Indic:
		return "hi"
	case International:
		return "fr"
	}
	return ""
}

func (c Category) String() string { return string(c) }

// ParseCategory maps a caller-supplied name onto a Category.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", &ConfigError{Field: name, Err: fmt.Errorf("%w: %q", ErrUnknownCategory, name)}
	}
	return c, nil
}

// Rank returns the canonical position of c, or -1.
func (c Category) Rank() int {
	for i, v := range Categories() {
		if v == c {
			return i
		}
	}
	return -1
}
