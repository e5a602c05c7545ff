// Package entries manages user-submitted price observations.
package entries

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates no entry with the given ID exists.
	ErrNotFound = errors.New("price entry not found")

	// ErrNotContributor indicates the user may not submit prices.
	ErrNotContributor = errors.New("You need data contributor access to add prices")

	// ErrForbidden indicates an admin-only operation by a non-admin.
	ErrForbidden = errors.New("Only the administrator can do this")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Filter selects entries. Zero fields do not filter. Item matches
// case-insensitively; From and To are inclusive YYYY-MM-DD dates.
type Filter struct {
	Item    string `form:"groceryType"`
	Country string `form:"country"`
	Store   string `form:"store"`
	From    string `form:"startDate"`
	To      string `form:"endDate"`
}

// Validate checks the date bounds.
func (f Filter) Validate() error {
	bounds := []struct{ name, value string }{{"startDate", f.From}, {"endDate", f.To}}
	for _, b := range bounds {
		if b.value == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, b.value); err != nil {
			return &ValidationError{Field: b.name, Message: "must be a YYYY-MM-DD date"}
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return &ValidationError{Field: "startDate", Message: "must not be after endDate"}
	}
	return nil
}

// Field is a suggestable entry column.
type Field string

const (
	FieldItem  Field = "item"
	FieldBrand Field = "brand"
	FieldStore Field = "store"
)

// ParseField validates a suggestion field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldItem, FieldBrand, FieldStore:
		return f, nil
	default:
		return "", &ValidationError{Field: "field", Message: "must be item, brand or store"}
	}
}

// DateLayout is the format of entry dates.
const DateLayout = "2006-01-02"

// MaxSuggestions caps suggestion lists.
const MaxSuggestions = 10
