package templates

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vogonweb/vogon/pkg/apperror"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func open() Node            { return Node{NodeType: NodeOpen} }
func ref(part int) Node     { return Node{NodeType: NodeReference, PartID: intPtr(part)} }
func fixed(id string) Node  { return Node{NodeType: NodeConcept, ConceptID: strPtr(id)} }
func builtin(t string) Node { return Node{NodeType: t} }

func TestParseRef(t *testing.T) {
	r, err := ParseRef(" 12o ")
	require.NoError(t, err)
	assert.Equal(t, Ref{Part: 12, Role: RoleObject}, r)
	assert.Equal(t, "12o", r.String())
	assert.Equal(t, "o12", r.Var())

	for _, bad := range []string{"", "s0", "0x", "-1s", "0so"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTerminalNodes(t *testing.T) {
	refs, err := ParseTerminalNodes("0s, 1o,,")
	require.NoError(t, err)
	assert.Equal(t, []Ref{{0, RoleSource}, {1, RoleObject}}, refs)

	refs, err = ParseTerminalNodes("  ")
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = ParseTerminalNodes("0s,zz")
	assert.Error(t, err)
}

// "Person was at place": part 1 nests part 0 as its source.
func nestedParts() []*Part {
	return []*Part{
		{InternalID: 1, Source: ref(0), Predicate: builtin(NodeHas), Object: open()},
		{InternalID: 0, Source: open(), Predicate: fixed("c-at"), Object: open()},
	}
}

func TestValidateParts(t *testing.T) {
	require.NoError(t, validateParts(nestedParts(), []Ref{{0, RoleSource}, {1, RoleObject}}))

	tests := []struct {
		name     string
		parts    []*Part
		terminal []Ref
		field    string
	}{
		{
			name:  "reference as predicate",
			parts: []*Part{{InternalID: 0, Source: open(), Predicate: ref(1), Object: open()}},
			field: "0p",
		},
		{
			name:  "is as source",
			parts: []*Part{{InternalID: 0, Source: builtin(NodeIs), Predicate: open(), Object: open()}},
			field: "0s",
		},
		{
			name:  "fixed concept missing",
			parts: []*Part{{InternalID: 0, Source: open(), Predicate: Node{NodeType: NodeConcept}, Object: open()}},
			field: "0p",
		},
		{
			name:  "unknown part",
			parts: []*Part{{InternalID: 0, Source: open(), Predicate: open(), Object: ref(7)}},
			field: "0o",
		},
		{
			name:  "self reference",
			parts: []*Part{{InternalID: 0, Source: ref(0), Predicate: open(), Object: open()}},
			field: "0s",
		},
		{
			name: "part used twice",
			parts: []*Part{
				{InternalID: 0, Source: open(), Predicate: open(), Object: open()},
				{InternalID: 1, Source: ref(0), Predicate: open(), Object: ref(0)},
			},
			field: "1o",
		},
		{
			name:     "terminal on reference",
			parts:    nestedParts(),
			terminal: []Ref{{1, RoleSource}},
			field:    "terminal:1s",
		},
		{
			name:     "terminal on unknown part",
			parts:    nestedParts(),
			terminal: []Ref{{5, RoleSource}},
			field:    "terminal:5s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateParts(tt.parts, tt.terminal)
			require.Error(t, err)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			fields, ok := appErr.Details["fields"].(map[string]string)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestBuildOrder(t *testing.T) {
	order, err := BuildOrder(nestedParts())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, order)

	cyclic := []*Part{
		{InternalID: 0, Source: ref(1), Predicate: open(), Object: open()},
		{InternalID: 1, Source: ref(0), Predicate: open(), Object: open()},
	}
	_, err = BuildOrder(cyclic)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.ErrorIs(t, validateParts(cyclic, nil), apperror.ErrValidation)
}

func TestOpenAndMissingFields(t *testing.T) {
	parts := nestedParts()
	assert.Equal(t, []Ref{{0, RoleSource}, {0, RoleObject}, {1, RoleObject}}, OpenFields(parts))

	missing := MissingFields(parts, map[string]string{"0s": "app-1", "1o": " "})
	assert.Equal(t, []string{"0o", "1o"}, missing)
}

func TestNormalizeExpression(t *testing.T) {
	assert.Equal(t, "{{s0}} {{p0}} {{o0}}", normalizeExpression("{0s} {0p} {0o}"))
	assert.Equal(t, "{{s0}}{{o12}}", normalizeExpression("{0s}{12o}"))
	assert.Equal(t, "{{s0}} and {{{o1}}}", normalizeExpression("{{s0}} and {{{o1}}}"))
	assert.Equal(t, "{x}", normalizeExpression("{x}"))
}

func TestRender(t *testing.T) {
	tmpl := &Template{
		Expression: "{0s} was at {0o} with {{o1}}",
		Parts:      nestedParts(),
	}
	out, err := tmpl.Render(map[string]string{
		"0s": "Arthur Dent",
		"0o": "Milliways",
		"1o": "Ford & Trillian",
	})
	require.NoError(t, err)
	assert.Equal(t, "Arthur Dent was at Milliways with Ford & Trillian", out)
}

func TestRender_DefaultOrder(t *testing.T) {
	tmpl := &Template{Parts: nestedParts()}
	out, err := tmpl.Render(map[string]string{
		"0s": "Arthur", "0p": "at", "0o": "Earth",
		"1p": "has/had", "1o": "towel",
	})
	require.NoError(t, err)
	assert.Equal(t, "Arthur at Earth has/had towel", out)
}

func TestParseExpression_Invalid(t *testing.T) {
	_, err := ParseExpression("{{#if s0}} unterminated")
	assert.Error(t, err)
}

const importYAML = `
templates:
  - name: Person was at place
    expression: "{0s} was at {0o}"
    terminal_nodes: "0s,0o"
    parts:
      - internal_id: 0
        source: {node_type: TP, type: "http://www.digitalhps.org/types/person", label: Person}
        predicate: {node_type: CO, concept: "urn:vogon:concept:be-at"}
        object: {node_type: TP, label: Place}
`

func TestImportDocument_Decode(t *testing.T) {
	var doc ImportDocument
	require.NoError(t, yaml.Unmarshal([]byte(importYAML), &doc))
	require.NoError(t, validator.New(validator.WithRequiredStructEnabled()).Struct(&doc))

	require.Len(t, doc.Templates, 1)
	tmpl := doc.Templates[0]
	assert.Equal(t, "Person was at place", tmpl.Name)
	assert.Equal(t, "0s,0o", tmpl.TerminalNodes)
	require.Len(t, tmpl.Parts, 1)
	assert.Equal(t, NodeOpen, tmpl.Parts[0].Source.NodeType)
	assert.Equal(t, "urn:vogon:concept:be-at", tmpl.Parts[0].Predicate.Concept)
}

func TestImportDocument_RejectsUnknownNodeType(t *testing.T) {
	var doc ImportDocument
	require.NoError(t, yaml.Unmarshal([]byte(`
templates:
  - name: broken
    parts:
      - internal_id: 0
        source: {node_type: XX}
        predicate: {node_type: TP}
        object: {node_type: TP}
`), &doc))
	assert.Error(t, validator.New(validator.WithRequiredStructEnabled()).Struct(&doc))
}
