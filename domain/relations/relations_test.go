package relations

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogonweb/vogon/domain/appellations"
	"github.com/vogonweb/vogon/domain/templates"
	"github.com/vogonweb/vogon/pkg/apperror"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// personAtPlace: part 1 = (part 0) has/had <object>; part 0 = <person> <fixed "at"> <place>.
func personAtPlace() *templates.Template {
	return &templates.Template{
		ID:            "tpl-1",
		Expression:    "{0s} was at {0o} and {{p1}} {1o}",
		TerminalNodes: "0s,0o,1o",
		Parts: []*templates.Part{
			{
				InternalID: 0,
				Source:     templates.Node{NodeType: templates.NodeOpen},
				Predicate:  templates.Node{NodeType: templates.NodeConcept, ConceptID: strPtr("c-at"), Label: "at"},
				Object:     templates.Node{NodeType: templates.NodeOpen},
			},
			{
				InternalID: 1,
				Source:     templates.Node{NodeType: templates.NodeReference, PartID: intPtr(0)},
				Predicate:  templates.Node{NodeType: templates.NodeHas},
				Object:     templates.Node{NodeType: templates.NodeOpen},
			},
		},
	}
}

func pickedAppellations() map[string]*appellations.Appellation {
	return map[string]*appellations.Appellation{
		"a-arthur": {ID: "a-arthur", OccursInID: "text-1", InterpretationID: "c-arthur"},
		"a-pub":    {ID: "a-pub", OccursInID: "text-1", InterpretationID: "c-pub"},
		"a-towel":  {ID: "a-towel", OccursInID: "text-1", InterpretationID: "c-towel"},
		"a-other":  {ID: "a-other", OccursInID: "text-2", InterpretationID: "c-pub"},
	}
}

func TestPlan(t *testing.T) {
	plans, err := plan(personAtPlace(), planContext{
		TextID:       "text-1",
		UserID:       "u-1",
		Fields:       map[string]string{"0s": "a-arthur", "0o": "a-pub", "1o": "a-towel"},
		Appellations: pickedAppellations(),
		Predicates:   map[string]string{templates.NodeHas: "c-have"},
	})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	first := plans[0]
	assert.Equal(t, 0, first.Part)
	assert.Equal(t, "a-arthur", first.Source.AppellationID)
	require.NotNil(t, first.Predicate.New)
	assert.Equal(t, "c-at", first.Predicate.New.InterpretationID)
	assert.True(t, first.Predicate.New.AsPredicate)
	assert.Equal(t, "a-pub", first.Object.AppellationID)

	second := plans[1]
	assert.Equal(t, 1, second.Part)
	require.NotNil(t, second.Source.Part)
	assert.Equal(t, 0, *second.Source.Part)
	require.NotNil(t, second.Predicate.New)
	assert.Equal(t, "c-have", second.Predicate.New.InterpretationID)
	assert.Equal(t, appellations.VerbHas, *second.Predicate.New.ControllingVerb)
	assert.Equal(t, "u-1", *second.Predicate.New.CreatedBy)
}

func TestPlan_MissingFields(t *testing.T) {
	_, err := plan(personAtPlace(), planContext{
		TextID:       "text-1",
		Fields:       map[string]string{"0s": "a-arthur"},
		Appellations: pickedAppellations(),
	})
	require.ErrorIs(t, err, apperror.ErrIncompleteTemplate)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"0o", "1o"}, appErr.Details["missing"])
}

func TestPlan_InvalidAppellations(t *testing.T) {
	tpl := personAtPlace()
	tpl.Parts[0].Predicate = templates.Node{NodeType: templates.NodeOpen}

	_, err := plan(tpl, planContext{
		TextID: "text-1",
		Fields: map[string]string{
			"0s": "a-arthur",
			"0p": "a-pub",
			"0o": "a-other",
			"1o": "a-missing",
		},
		Appellations: pickedAppellations(),
		Predicates:   map[string]string{templates.NodeHas: "c-have"},
	})
	require.ErrorIs(t, err, apperror.ErrIncompleteTemplate)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	fields := appErr.Details["fields"].(map[string]string)
	assert.Equal(t, "appellation is not a predicate", fields["0p"])
	assert.Equal(t, "appellation belongs to another text", fields["0o"])
	assert.Contains(t, fields["1o"], "unknown appellation")
	assert.NotContains(t, fields, "0s")
}

func TestDescribe(t *testing.T) {
	rels := []*Relation{
		{
			ID:                     "r0",
			PartInternalID:         intPtr(0),
			SourceAppellationID:    strPtr("a-arthur"),
			PredicateAppellationID: "a-at",
			ObjectAppellationID:    strPtr("a-pub"),
		},
		{
			ID:                     "r1",
			PartInternalID:         intPtr(1),
			SourceRelationID:       strPtr("r0"),
			PredicateAppellationID: "a-has",
			ObjectAppellationID:    strPtr("a-towel"),
		},
	}
	labels := map[string]appellationLabel{
		"a-arthur": {Label: "Arthur Dent", ConceptID: "c-arthur"},
		"a-at":     {Label: "at", ConceptID: "c-at"},
		"a-pub":    {Label: "The Horse and Groom", ConceptID: "c-pub"},
		"a-has":    {Label: "has/had", ConceptID: "c-have"},
		"a-towel":  {Label: "towel", ConceptID: "c-towel"},
	}

	repr, terminal, err := describe(personAtPlace(), rels, labels)
	require.NoError(t, err)
	assert.Equal(t, "Arthur Dent was at The Horse and Groom and has/had towel", repr)
	assert.Equal(t, []string{"c-arthur", "c-pub", "c-towel"}, terminal)

	repr, terminal, err = describe(nil, rels, labels)
	require.NoError(t, err)
	assert.Equal(t, "Arthur Dent at The Horse and Groom has/had towel", repr)
	assert.Empty(t, terminal)
}

func TestDescribe_TerminalNodesDeduplicated(t *testing.T) {
	tpl := personAtPlace()
	tpl.TerminalNodes = "0s,0o"
	rels := []*Relation{{
		PartInternalID:         intPtr(0),
		SourceAppellationID:    strPtr("a1"),
		PredicateAppellationID: "a2",
		ObjectAppellationID:    strPtr("a3"),
	}}
	labels := map[string]appellationLabel{
		"a1": {Label: "Zaphod", ConceptID: "c-zaphod"},
		"a3": {Label: "Beeblebrox", ConceptID: "c-zaphod"},
	}

	_, terminal, err := describe(tpl, rels, labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"c-zaphod"}, terminal)
}

func TestFieldAppellationIDs(t *testing.T) {
	ids := fieldAppellationIDs(personAtPlace().Parts, map[string]string{
		"0s": "a-1", "0o": "a-1", "1o": " a-2 ", "9s": "ignored",
	})
	assert.Equal(t, []string{"a-1", "a-2"}, ids)
}

func TestCanModify(t *testing.T) {
	set := &RelationSet{CreatedBy: strPtr("u-1")}
	assert.True(t, canModify(set, "u-1", false))
	assert.False(t, canModify(set, "u-2", false))
	assert.True(t, canModify(set, "u-2", true))
	assert.False(t, canModify(&RelationSet{}, "u-1", false))
}

func TestRefreshHandler_RejectsBadPayload(t *testing.T) {
	h := NewRefreshHandler(nil)
	assert.Equal(t, TaskRefreshRepresentation, h.Name())

	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{`)))
	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{}`)))
}
