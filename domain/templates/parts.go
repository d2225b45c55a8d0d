package templates

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vogonweb/vogon/pkg/apperror"
)

// Ref addresses one field of one part, written "<internal id><role>" ("0s").
type Ref struct {
	Part int
	Role string
}

func (r Ref) String() string {
	return strconv.Itoa(r.Part) + r.Role
}

// Var is the expression variable bound to the field ("s0").
func (r Ref) Var() string {
	return r.Role + strconv.Itoa(r.Part)
}

var refPattern = regexp.MustCompile(`^(\d+)([spo])$`)

// ParseRef parses "0s", "12o" and similar.
func ParseRef(s string) (Ref, error) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Ref{}, fmt.Errorf("invalid part reference %q", s)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return Ref{}, fmt.Errorf("invalid part reference %q: %w", s, err)
	}
	return Ref{Part: id, Role: m[2]}, nil
}

// ParseTerminalNodes splits a comma-separated list of refs. Blank input is
// an empty list.
func ParseTerminalNodes(s string) ([]Ref, error) {
	var out []Ref
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		ref, err := ParseRef(item)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

var roles = []string{RoleSource, RolePredicate, RoleObject}

// allowedNodeTypes lists the node types each role accepts.
var allowedNodeTypes = map[string][]string{
	RoleSource:    {NodeOpen, NodeConcept, NodeReference},
	RolePredicate: {NodeOpen, NodeConcept, NodeIs, NodeHas},
	RoleObject:    {NodeOpen, NodeConcept, NodeReference},
}

func allowed(role, nodeType string) bool {
	for _, t := range allowedNodeTypes[role] {
		if t == nodeType {
			return true
		}
	}
	return false
}

// validateParts checks node types, fixed concepts, references and terminal
// nodes. Problems are collected per field ref.
func validateParts(parts []*Part, terminal []Ref) error {
	problems := map[string]string{}
	byID := make(map[int]*Part, len(parts))
	for _, p := range parts {
		if _, dup := byID[p.InternalID]; dup {
			problems[strconv.Itoa(p.InternalID)] = "duplicate internal id"
		}
		byID[p.InternalID] = p
	}

	referenced := map[int]string{}
	for _, p := range parts {
		for _, role := range roles {
			ref := Ref{Part: p.InternalID, Role: role}.String()
			n := p.Node(role)
			if !allowed(role, n.NodeType) {
				problems[ref] = "node type " + n.NodeType + " not allowed here"
				continue
			}
			switch n.NodeType {
			case NodeConcept:
				if n.ConceptID == nil {
					problems[ref] = "fixed concept missing"
				}
			case NodeReference:
				switch {
				case n.PartID == nil:
					problems[ref] = "referenced part missing"
				case *n.PartID == p.InternalID:
					problems[ref] = "part references itself"
				case byID[*n.PartID] == nil:
					problems[ref] = "unknown part " + strconv.Itoa(*n.PartID)
				case referenced[*n.PartID] != "":
					problems[ref] = "part already used by " + referenced[*n.PartID]
				default:
					referenced[*n.PartID] = ref
				}
			}
		}
	}

	for _, t := range terminal {
		p := byID[t.Part]
		switch {
		case p == nil:
			problems["terminal:"+t.String()] = "unknown part"
		case p.Node(t.Role).NodeType == NodeReference:
			problems["terminal:"+t.String()] = "terminal node cannot be a reference"
		}
	}

	if len(problems) == 0 {
		if _, err := BuildOrder(parts); err != nil {
			return err
		}
		return nil
	}
	return apperror.ErrValidation.WithMessage("Invalid template parts").WithDetails(map[string]any{
		"fields": problems,
	})
}

// BuildOrder returns the part ids ordered so every referenced part comes
// before the part that references it.
func BuildOrder(parts []*Part) ([]int, error) {
	deps := make(map[int][]int, len(parts))
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.InternalID)
		for _, n := range []*Node{&p.Source, &p.Object} {
			if n.NodeType == NodeReference && n.PartID != nil {
				deps[p.InternalID] = append(deps[p.InternalID], *n.PartID)
			}
		}
	}
	sort.Ints(ids)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[int]int, len(ids))
	order := make([]int, 0, len(ids))

	var visit func(id int) error
	visit = func(id int) error {
		switch state[id] {
		case visiting:
			return apperror.ErrValidation.WithMessage("Template parts reference each other in a cycle")
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// OpenFields lists the refs an annotator must fill in when instantiating.
func OpenFields(parts []*Part) []Ref {
	var out []Ref
	for _, p := range parts {
		for _, role := range roles {
			if p.Node(role).NodeType == NodeOpen {
				out = append(out, Ref{Part: p.InternalID, Role: role})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Part != out[j].Part {
			return out[i].Part < out[j].Part
		}
		return roleIndex(out[i].Role) < roleIndex(out[j].Role)
	})
	return out
}

func roleIndex(role string) int {
	for i, r := range roles {
		if r == role {
			return i
		}
	}
	return len(roles)
}

// MissingFields returns the open fields without a value in fields.
func MissingFields(parts []*Part, fields map[string]string) []string {
	var missing []string
	for _, ref := range OpenFields(parts) {
		if strings.TrimSpace(fields[ref.String()]) == "" {
			missing = append(missing, ref.String())
		}
	}
	return missing
}
