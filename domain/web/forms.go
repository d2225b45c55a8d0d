package web

import (
	"net/url"
	"strings"

	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/pkg/forms"
)

var visibilityChoices = []forms.Choice{
	{Value: "private", Label: "Private"},
	{Value: "public", Label: "Public"},
}

func uploadForm(values url.Values) forms.Form {
	return forms.Form{
		Fields: []forms.Field{
			{Name: "title", Title: "Title"},
			{Name: "uri", Title: "Source URI"},
			{Name: "visibility", Title: "Visibility", Choices: visibilityChoices},
		},
		Values: values,
	}
}

func conceptForm(values url.Values, types []forms.Choice) forms.Form {
	return forms.Form{
		Fields: []forms.Field{
			{Name: "label", Title: "Label"},
			{Name: "type", Title: "Type", Choices: types},
			{Name: "uri", Title: "URI"},
			{Name: "description", Title: "Description"},
		},
		Values: values,
	}
}

func typeChoices(types []concepts.ConceptType) []forms.Choice {
	out := make([]forms.Choice, 0, len(types))
	for _, t := range types {
		out = append(out, forms.Choice{Value: t.ID, Label: t.Label})
	}
	return out
}

func optional(values url.Values, name string) *string {
	v := strings.TrimSpace(values.Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
