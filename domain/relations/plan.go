package relations

import (
	"sort"
	"strings"

	"github.com/vogonweb/vogon/domain/appellations"
	"github.com/vogonweb/vogon/domain/templates"
	"github.com/vogonweb/vogon/pkg/apperror"
)

// fieldPlan says where one field of a planned relation comes from. Exactly
// one member is set.
type fieldPlan struct {
	AppellationID string
	New           *appellations.Appellation
	Part          *int
}

// relationPlan is a relation to insert for one template part.
type relationPlan struct {
	Part      int
	Source    fieldPlan
	Predicate fieldPlan
	Object    fieldPlan
}

// planContext carries what instantiation needs besides the template.
type planContext struct {
	TextID    string
	ProjectID *string
	UserID    string
	// Fields maps open refs ("0s") to appellation ids.
	Fields map[string]string
	// Appellations holds the appellations named in Fields.
	Appellations map[string]*appellations.Appellation
	// Predicates maps NodeIs and NodeHas to their concept ids.
	Predicates map[string]string
}

// plan lays out the relations of a template instantiation, referenced parts
// first.
func plan(t *templates.Template, pc planContext) ([]relationPlan, error) {
	if missing := templates.MissingFields(t.Parts, pc.Fields); len(missing) > 0 {
		return nil, apperror.ErrIncompleteTemplate.WithDetails(map[string]any{"missing": missing})
	}
	order, err := templates.BuildOrder(t.Parts)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*templates.Part, len(t.Parts))
	for _, p := range t.Parts {
		byID[p.InternalID] = p
	}

	problems := map[string]string{}
	out := make([]relationPlan, 0, len(order))
	for _, id := range order {
		p := byID[id]
		rp := relationPlan{Part: id}
		for _, role := range []string{templates.RoleSource, templates.RolePredicate, templates.RoleObject} {
			ref := templates.Ref{Part: id, Role: role}.String()
			fp, problem := planField(p.Node(role), role, ref, pc)
			if problem != "" {
				problems[ref] = problem
				continue
			}
			switch role {
			case templates.RoleSource:
				rp.Source = fp
			case templates.RolePredicate:
				rp.Predicate = fp
			case templates.RoleObject:
				rp.Object = fp
			}
		}
		out = append(out, rp)
	}

	if len(problems) > 0 {
		return nil, apperror.ErrIncompleteTemplate.WithMessage("Template fields are invalid").
			WithDetails(map[string]any{"fields": problems})
	}
	return out, nil
}

func planField(n *templates.Node, role, ref string, pc planContext) (fieldPlan, string) {
	asPredicate := role == templates.RolePredicate

	switch n.NodeType {
	case templates.NodeOpen:
		id := strings.TrimSpace(pc.Fields[ref])
		a, ok := pc.Appellations[id]
		if !ok {
			return fieldPlan{}, "unknown appellation " + id
		}
		if a.OccursInID != pc.TextID {
			return fieldPlan{}, "appellation belongs to another text"
		}
		if asPredicate && !a.AsPredicate {
			return fieldPlan{}, "appellation is not a predicate"
		}
		return fieldPlan{AppellationID: id}, ""

	case templates.NodeConcept:
		if n.ConceptID == nil {
			return fieldPlan{}, "fixed concept missing"
		}
		return fieldPlan{New: appellations.NewFixed(pc.TextID, *n.ConceptID, n.Label, asPredicate, pc.ProjectID, pc.UserID)}, ""

	case templates.NodeIs, templates.NodeHas:
		verb := appellations.VerbIs
		if n.NodeType == templates.NodeHas {
			verb = appellations.VerbHas
		}
		a, err := appellations.NewPredicate(pc.TextID, pc.Predicates[n.NodeType], verb, pc.ProjectID, pc.UserID)
		if err != nil {
			return fieldPlan{}, err.Error()
		}
		return fieldPlan{New: a}, ""

	case templates.NodeReference:
		if n.PartID == nil {
			return fieldPlan{}, "referenced part missing"
		}
		part := *n.PartID
		return fieldPlan{Part: &part}, ""
	}
	return fieldPlan{}, "unsupported node type " + n.NodeType
}

// appellationLabel is what the representation shows for one appellation.
type appellationLabel struct {
	Label     string
	ConceptID string
}

// describe renders the representation of a set and collects its terminal
// concepts. labels is keyed by appellation id. Without a template the labels
// are joined in part order.
func describe(t *templates.Template, rels []*Relation, labels map[string]appellationLabel) (string, []string, error) {
	values := map[string]string{}
	byPart := map[int]*Relation{}
	for _, r := range rels {
		if r.PartInternalID == nil {
			continue
		}
		byPart[*r.PartInternalID] = r
		for _, role := range []string{templates.RoleSource, templates.RolePredicate, templates.RoleObject} {
			if id := r.Appellation(role); id != nil {
				values[templates.Ref{Part: *r.PartInternalID, Role: role}.String()] = labels[*id].Label
			}
		}
	}

	if t == nil {
		return joinInPartOrder(values), nil, nil
	}

	repr, err := t.Render(values)
	if err != nil {
		return "", nil, err
	}

	refs, err := templates.ParseTerminalNodes(t.TerminalNodes)
	if err != nil {
		return "", nil, err
	}
	seen := map[string]bool{}
	var terminal []string
	for _, ref := range refs {
		r := byPart[ref.Part]
		if r == nil {
			continue
		}
		id := r.Appellation(ref.Role)
		if id == nil {
			continue
		}
		conceptID := labels[*id].ConceptID
		if conceptID == "" || seen[conceptID] {
			continue
		}
		seen[conceptID] = true
		terminal = append(terminal, conceptID)
	}
	return repr, terminal, nil
}

func joinInPartOrder(values map[string]string) string {
	refs := make([]templates.Ref, 0, len(values))
	for k := range values {
		if r, err := templates.ParseRef(k); err == nil {
			refs = append(refs, r)
		}
	}
	rank := map[string]int{templates.RoleSource: 0, templates.RolePredicate: 1, templates.RoleObject: 2}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Part != refs[j].Part {
			return refs[i].Part < refs[j].Part
		}
		return rank[refs[i].Role] < rank[refs[j].Role]
	})
	words := make([]string, 0, len(refs))
	for _, r := range refs {
		if v := strings.TrimSpace(values[r.String()]); v != "" {
			words = append(words, v)
		}
	}
	return strings.Join(words, " ")
}
