package appellations

import (
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// Controlling verbs of predicate appellations.
const (
	VerbIs  = "is"
	VerbHas = "has"
)

// Appellation tags a span of a text with the concept it refers to.
type Appellation struct {
	bun.BaseModel `bun:"table:appellations,alias:a"`

	ID               string         `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	OccursInID       string         `bun:"occurs_in_id,notnull,type:uuid" json:"occursIn"`
	InterpretationID string         `bun:"interpretation_id,notnull,type:uuid" json:"interpretation"`
	StringRep        string         `bun:"string_rep,notnull" json:"stringRep"`
	StartPos         *int           `bun:"start_pos" json:"startPos,omitempty"`
	EndPos           *int           `bun:"end_pos" json:"endPos,omitempty"`
	TokenIDs         pq.StringArray `bun:"token_ids,type:text[]" json:"tokenIds"`
	AsPredicate      bool           `bun:"as_predicate,notnull" json:"asPredicate"`
	ControllingVerb  *string        `bun:"controlling_verb" json:"controllingVerb,omitempty"`
	ProjectID        *string        `bun:"project_id,type:uuid" json:"projectId,omitempty"`
	CreatedBy        *string        `bun:"created_by,type:uuid" json:"createdBy,omitempty"`
	CreatedAt        time.Time      `bun:"created_at,notnull,default:now()" json:"createdAt"`

	VerbLabel string `bun:"-" json:"controllingVerbLabel,omitempty"`
}

// VerbDisplay returns the label shown for a controlling verb.
func VerbDisplay(verb string) string {
	switch verb {
	case VerbIs:
		return "is/was"
	case VerbHas:
		return "has/had"
	}
	return ""
}

// decorate fills display-only fields.
func (a *Appellation) decorate() {
	if a.ControllingVerb != nil {
		a.VerbLabel = VerbDisplay(*a.ControllingVerb)
	}
	if a.TokenIDs == nil {
		a.TokenIDs = pq.StringArray{}
	}
}

// CreateRequest is the body of POST /api/appellations
type CreateRequest struct {
	OccursIn        string   `json:"occursIn" validate:"required,uuid"`
	Interpretation  string   `json:"interpretation" validate:"required,uuid"`
	StringRep       string   `json:"stringRep" validate:"max=4096"`
	StartPos        *int     `json:"startPos" validate:"omitempty,min=0"`
	EndPos          *int     `json:"endPos" validate:"omitempty,min=0"`
	TokenIDs        []string `json:"tokenIds" validate:"omitempty,dive,numeric"`
	ProjectID       *string  `json:"projectId" validate:"omitempty,uuid"`
	AsPredicate     bool     `json:"asPredicate"`
	ControllingVerb string   `json:"controllingVerb" validate:"omitempty,oneof=is has"`
}

// ListFilter narrows GET /api/appellations.
type ListFilter struct {
	TextID    string
	ProjectID string
	ConceptID string
	UserID    string
	Predicate *bool
	Limit     int
	Offset    int
}

type ListResponse struct {
	Appellations []Appellation `json:"appellations"`
	Total        int           `json:"total"`
}
