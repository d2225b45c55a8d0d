package repositories

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Repository managers.
const (
	ManagerLocal = "local"
	ManagerGiles = "giles"
)

// TextRepository is a source texts are imported from.
type TextRepository struct {
	bun.BaseModel `bun:"table:repositories,alias:r"`

	ID            string          `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name          string          `bun:"name,notnull" json:"name"`
	Description   string          `bun:"description,notnull" json:"description"`
	Manager       string          `bun:"manager,notnull" json:"manager"`
	Endpoint      string          `bun:"endpoint,notnull" json:"endpoint"`
	Configuration json.RawMessage `bun:"configuration,type:jsonb,notnull" json:"configuration"`
	CreatedBy     *string         `bun:"created_by,type:uuid" json:"createdBy,omitempty"`
	CreatedAt     time.Time       `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// CreateRequest is the body of POST /api/repositories
type CreateRequest struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	Manager       string          `json:"manager" validate:"omitempty,oneof=local giles"`
	Endpoint      string          `json:"endpoint" validate:"omitempty,url"`
	Configuration json.RawMessage `json:"configuration"`
}

// UpdateRequest is the body of PATCH /api/repositories/:id
type UpdateRequest struct {
	Name          *string         `json:"name" validate:"omitempty,max=255"`
	Description   *string         `json:"description"`
	Endpoint      *string         `json:"endpoint" validate:"omitempty,url"`
	Configuration json.RawMessage `json:"configuration"`
}
