package templates

import (
	"time"

	"github.com/uptrace/bun"
)

// Node types of a template part field.
const (
	// NodeOpen lets the annotator pick an appellation, optionally of a concept type.
	NodeOpen = "TP"
	// NodeConcept fixes the field to a concept.
	NodeConcept = "CO"
	// NodeReference nests the relation built from another part.
	NodeReference = "RE"
	// NodeIs and NodeHas are the built-in "is/was" and "has/had" predicates.
	NodeIs  = "IS"
	NodeHas = "HA"
)

// Roles of the three fields of a part.
const (
	RoleSource    = "s"
	RolePredicate = "p"
	RoleObject    = "o"
)

// Template describes how a relation set is assembled from appellations.
type Template struct {
	bun.BaseModel `bun:"table:relation_templates,alias:rt"`

	ID          string `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	Description string `bun:"description,notnull" json:"description"`
	// Expression is a Handlebars template over the part fields (see Render).
	Expression string `bun:"expression,notnull" json:"expression"`
	// TerminalNodes is a comma-separated list of part refs such as "0s,1o".
	TerminalNodes string    `bun:"terminal_nodes,notnull" json:"terminalNodes"`
	CreatedBy     *string   `bun:"created_by,type:uuid" json:"createdBy,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`

	Parts []*Part `bun:"rel:has-many,join:id=template_id" json:"parts,omitempty"`
}

// Node is one field (source, predicate or object) of a part.
type Node struct {
	NodeType    string  `bun:"node_type,notnull" json:"nodeType"`
	Label       string  `bun:"label,notnull" json:"label"`
	TypeID      *string `bun:"type_id,type:uuid" json:"typeId,omitempty"`
	ConceptID   *string `bun:"concept_id,type:uuid" json:"conceptId,omitempty"`
	PartID      *int    `bun:"part_id" json:"partId,omitempty"`
	Description string  `bun:"description,notnull" json:"description"`
}

// Part is one subject/predicate/object triple of a template.
type Part struct {
	bun.BaseModel `bun:"table:relation_template_parts,alias:rtp"`

	ID         string `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	TemplateID string `bun:"template_id,notnull,type:uuid" json:"templateId"`
	InternalID int    `bun:"internal_id,notnull" json:"internalId"`

	Source    Node `bun:"embed:source_" json:"source"`
	Predicate Node `bun:"embed:predicate_" json:"predicate"`
	Object    Node `bun:"embed:object_" json:"object"`
}

// Node returns the field of p for role.
func (p *Part) Node(role string) *Node {
	switch role {
	case RoleSource:
		return &p.Source
	case RolePredicate:
		return &p.Predicate
	case RoleObject:
		return &p.Object
	}
	return nil
}

// NodeRequest describes a part field in create and import requests.
// Type and Concept accept an id or a URI.
type NodeRequest struct {
	NodeType    string `json:"nodeType" yaml:"node_type" validate:"required,oneof=TP CO RE IS HA"`
	Label       string `json:"label" yaml:"label"`
	Type        string `json:"type" yaml:"type"`
	Concept     string `json:"concept" yaml:"concept"`
	Part        *int   `json:"part" yaml:"part"`
	Description string `json:"description" yaml:"description"`
}

// PartRequest describes one part.
type PartRequest struct {
	InternalID int         `json:"internalId" yaml:"internal_id" validate:"min=0"`
	Source     NodeRequest `json:"source" yaml:"source"`
	Predicate  NodeRequest `json:"predicate" yaml:"predicate"`
	Object     NodeRequest `json:"object" yaml:"object"`
}

// CreateRequest is the body of POST /api/templates
type CreateRequest struct {
	Name          string        `json:"name" yaml:"name" validate:"required,max=255"`
	Description   string        `json:"description" yaml:"description"`
	Expression    string        `json:"expression" yaml:"expression"`
	TerminalNodes string        `json:"terminalNodes" yaml:"terminal_nodes"`
	Parts         []PartRequest `json:"parts" yaml:"parts" validate:"required,min=1,dive"`
}

// ImportDocument is the YAML accepted by POST /api/templates/import.
type ImportDocument struct {
	Templates []CreateRequest `yaml:"templates" validate:"required,min=1,dive"`
}

type ImportResponse struct {
	Created []Template `json:"created"`
}
