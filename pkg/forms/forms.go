// Package forms renders submitted form values for read-only display.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownChoice is returned when a submitted value is not among a field's choices.
var ErrUnknownChoice = errors.New("value is not a declared choice")

// Choice is one option of a select or radio field.
type Choice struct {
	Value string
	Label string
}

// Field describes a form input. Fields with Choices display the matching label.
// Bool fields such as checkboxes are also omitted when unchecked ("0", "false", "off").
type Field struct {
	Name    string
	Title   string
	Choices []Choice
	Bool    bool
}

// Form is a set of fields bound to submitted values.
type Form struct {
	Fields []Field
	Values url.Values
}

// Entry is one (title, value) pair ready for display.
type Entry struct {
	Title string
	Value string
}

// DisplayValues returns the fields that carry a value, in declaration order,
// with choice values replaced by their labels.
func DisplayValues(f Form) ([]Entry, error) {
	out := make([]Entry, 0, len(f.Fields))
	for _, field := range f.Fields {
		v := strings.TrimSpace(f.Values.Get(field.Name))
		if !field.present(v) {
			continue
		}

		title := field.Title
		if title == "" {
			title = field.Name
		}

		if field.Choices != nil {
			label, ok := field.label(v)
			if !ok {
				return nil, fmt.Errorf("%w: field %q value %q", ErrUnknownChoice, field.Name, v)
			}
			v = label
		}

		out = append(out, Entry{Title: title, Value: v})
	}
	return out, nil
}

func (f Field) label(value string) (string, bool) {
	for _, c := range f.Choices {
		if c.Value == value {
			return c.Label, true
		}
	}
	return "", false
}

func (f Field) present(v string) bool {
	if v == "" {
		return false
	}
	if !f.Bool {
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "off":
		return false
	}
	return true
}
