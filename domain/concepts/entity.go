package concepts

import (
	"time"

	"github.com/uptrace/bun"
)

// Concept states.
const (
	StatePending  = "Pending"
	StateRejected = "Rejected"
	StateApproved = "Approved"
	StateResolved = "Resolved"
)

// ConceptType classifies concepts (person, place, ...).
type ConceptType struct {
	bun.BaseModel `bun:"table:concept_types,alias:ct"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	URI         string    `bun:"uri,notnull" json:"uri"`
	Label       string    `bun:"label,notnull" json:"label"`
	Description string    `bun:"description,notnull" json:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// Concept is a controlled-vocabulary entry appellations point at.
type Concept struct {
	bun.BaseModel `bun:"table:concepts,alias:c"`

	ID           string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	URI          string    `bun:"uri,notnull" json:"uri"`
	Label        string    `bun:"label,notnull" json:"label"`
	Description  string    `bun:"description,notnull" json:"description"`
	Authority    string    `bun:"authority,notnull" json:"authority"`
	TypeID       *string   `bun:"type_id,type:uuid" json:"typeId,omitempty"`
	State        string    `bun:"concept_state,notnull" json:"state"`
	MergedWithID *string   `bun:"merged_with_id,type:uuid" json:"mergedWithId,omitempty"`
	CreatedBy    *string   `bun:"created_by,type:uuid" json:"createdBy,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// ConceptDetail adds the id of the concept readers should use.
type ConceptDetail struct {
	*Concept
	CanonicalID string `json:"canonicalId"`
}

// CreateTypeRequest is the body of POST /api/concepttypes
type CreateTypeRequest struct {
	URI         string `json:"uri" validate:"required,max=2048"`
	Label       string `json:"label" validate:"required,max=255"`
	Description string `json:"description"`
}

// CreateRequest is the body of POST /api/concepts
type CreateRequest struct {
	URI         string  `json:"uri" validate:"omitempty,max=2048"`
	Label       string  `json:"label" validate:"required,max=255"`
	Description string  `json:"description"`
	TypeID      *string `json:"typeId" validate:"omitempty,uuid"`
}

// UpdateRequest is the body of PATCH /api/concepts/:id
type UpdateRequest struct {
	Label       *string `json:"label" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	TypeID      *string `json:"typeId" validate:"omitempty,uuid"`
}

// ResolveRequest is the body of POST /api/concepts/:id/resolve
type ResolveRequest struct {
	Authority string `json:"authority" validate:"required,uri"`
}

// MergeRequest is the body of POST /api/concepts/:id/merge
type MergeRequest struct {
	Target string `json:"target" validate:"required,uuid"`
}

// ListFilter narrows GET /api/concepts.
type ListFilter struct {
	State  string
	TypeID string
	Search string
	Limit  int
	Offset int
}

type ListResponse struct {
	Concepts []Concept `json:"concepts"`
	Total    int       `json:"total"`
}
