package relations

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/domain/templates"
)

// Relation set statuses.
const (
	StatusPending   = "pending"
	StatusReady     = "ready"
	StatusSubmitted = "submitted"
)

// TaskRefreshRepresentation recomputes the cached representation of a set.
const TaskRefreshRepresentation = "relationsets.refresh_representation"

// RelationSet groups the relations created from one template instantiation.
type RelationSet struct {
	bun.BaseModel `bun:"table:relation_sets,alias:rs"`

	ID             string     `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	TemplateID     *string    `bun:"template_id,type:uuid" json:"templateId,omitempty"`
	OccursInID     string     `bun:"occurs_in_id,notnull,type:uuid" json:"occursIn"`
	ProjectID      *string    `bun:"project_id,type:uuid" json:"projectId,omitempty"`
	CreatedBy      *string    `bun:"created_by,type:uuid" json:"createdBy,omitempty"`
	Representation string     `bun:"representation,notnull" json:"representation"`
	Status         string     `bun:"status,notnull" json:"status"`
	SubmittedAt    *time.Time `bun:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:now()" json:"updatedAt"`

	Relations     []*Relation `bun:"rel:has-many,join:id=part_of_id" json:"relations,omitempty"`
	TerminalNodes []string    `bun:"-" json:"terminalNodes"`
}

// Relation is a source/predicate/object triple. Source and object are either
// an appellation or a nested relation.
type Relation struct {
	bun.BaseModel `bun:"table:relations,alias:rel"`

	ID                     string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	PartOfID               string    `bun:"part_of_id,notnull,type:uuid" json:"partOf"`
	PartInternalID         *int      `bun:"part_internal_id" json:"partInternalId,omitempty"`
	SourceAppellationID    *string   `bun:"source_appellation_id,type:uuid" json:"sourceAppellationId,omitempty"`
	SourceRelationID       *string   `bun:"source_relation_id,type:uuid" json:"sourceRelationId,omitempty"`
	PredicateAppellationID string    `bun:"predicate_appellation_id,notnull,type:uuid" json:"predicateAppellationId"`
	ObjectAppellationID    *string   `bun:"object_appellation_id,type:uuid" json:"objectAppellationId,omitempty"`
	ObjectRelationID       *string   `bun:"object_relation_id,type:uuid" json:"objectRelationId,omitempty"`
	CreatedAt              time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// Appellation returns the appellation id in role ("s", "p", "o"), nil when the
// field holds a nested relation.
func (r *Relation) Appellation(role string) *string {
	switch role {
	case templates.RoleSource:
		return r.SourceAppellationID
	case templates.RolePredicate:
		return &r.PredicateAppellationID
	case templates.RoleObject:
		return r.ObjectAppellationID
	}
	return nil
}

// AppellationIDs lists every appellation the relation points at.
func (r *Relation) AppellationIDs() []string {
	var out []string
	for _, role := range []string{templates.RoleSource, templates.RolePredicate, templates.RoleObject} {
		if id := r.Appellation(role); id != nil {
			out = append(out, *id)
		}
	}
	return out
}

// TerminalNode links a relation set to one of its terminal concepts.
type TerminalNode struct {
	bun.BaseModel `bun:"table:relation_set_terminal_nodes,alias:tn"`

	RelationSetID string `bun:"relation_set_id,pk,type:uuid"`
	ConceptID     string `bun:"concept_id,pk,type:uuid"`
}

// InstantiateRequest is the body of POST /api/templates/:id/create. Fields
// maps open template fields ("0s", "1o") to appellation ids.
type InstantiateRequest struct {
	OccursIn  string            `json:"occursIn" validate:"required,uuid"`
	ProjectID *string           `json:"projectId" validate:"omitempty,uuid"`
	Fields    map[string]string `json:"fields"`
}

// ListFilter narrows GET /api/relationsets.
type ListFilter struct {
	TextID    string
	ProjectID string
	UserID    string
	Status    string
	Limit     int
	Offset    int
}

type ListResponse struct {
	RelationSets []RelationSet `json:"relationSets"`
	Total        int           `json:"total"`
}

// RefreshPayload is the payload of TaskRefreshRepresentation.
type RefreshPayload struct {
	RelationSetID string `json:"relationSetId"`
}
