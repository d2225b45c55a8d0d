package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aymerick/raymond"
)

// placeholders matches Handlebars mustaches and the "{0s}" shorthand.
var placeholders = regexp.MustCompile(`\{\{[^}]*\}\}\}?|\{(\d+)([spo])\}`)

// normalizeExpression rewrites the "{0s}" shorthand to the Handlebars
// variable "{{s0}}". Existing mustaches are left alone.
func normalizeExpression(expr string) string {
	return placeholders.ReplaceAllStringFunc(expr, func(m string) string {
		if strings.HasPrefix(m, "{{") {
			return m
		}
		sub := placeholders.FindStringSubmatch(m)
		return "{{" + sub[2] + sub[1] + "}}"
	})
}

// ParseExpression parses a template expression.
func ParseExpression(expr string) (*raymond.Template, error) {
	tmpl, err := raymond.Parse(normalizeExpression(expr))
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	return tmpl, nil
}

// Render evaluates the template expression. values maps refs ("0s") to the
// labels of the filled fields. Without an expression the parts are joined in
// source, predicate, object order.
func (t *Template) Render(values map[string]string) (string, error) {
	if strings.TrimSpace(t.Expression) == "" {
		return defaultRepresentation(t.Parts, values), nil
	}

	tmpl, err := ParseExpression(t.Expression)
	if err != nil {
		return "", err
	}
	ctx := make(map[string]any, len(values))
	for ref, v := range values {
		r, err := ParseRef(ref)
		if err != nil {
			continue
		}
		ctx[r.Var()] = raymond.SafeString(v)
	}
	out, err := tmpl.Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("render expression: %w", err)
	}
	return strings.Join(strings.Fields(out), " "), nil
}

func defaultRepresentation(parts []*Part, values map[string]string) string {
	order, err := BuildOrder(parts)
	if err != nil {
		return ""
	}
	var words []string
	for _, id := range order {
		for _, role := range roles {
			if v := strings.TrimSpace(values[Ref{Part: id, Role: role}.String()]); v != "" {
				words = append(words, v)
			}
		}
	}
	return strings.Join(words, " ")
}
