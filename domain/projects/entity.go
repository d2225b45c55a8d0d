package projects

import (
	"time"

	"github.com/uptrace/bun"
)

// Project is a text collection shared between an owner and participants.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,notnull" json:"description"`
	QuadrigaID  *string   `bun:"quadriga_id" json:"quadrigaId,omitempty"`
	OwnerID     string    `bun:"owner_id,notnull,type:uuid" json:"ownerId"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// ProjectText links a text to a project.
type ProjectText struct {
	bun.BaseModel `bun:"table:project_texts,alias:pt"`

	ProjectID string    `bun:"project_id,pk,type:uuid"`
	TextID    string    `bun:"text_id,pk,type:uuid"`
	AddedAt   time.Time `bun:"added_at,notnull,default:now()"`
}

// ProjectParticipant grants a user write access to a project.
type ProjectParticipant struct {
	bun.BaseModel `bun:"table:project_participants,alias:pp"`

	ProjectID string    `bun:"project_id,pk,type:uuid"`
	UserID    string    `bun:"user_id,pk,type:uuid"`
	AddedAt   time.Time `bun:"added_at,notnull,default:now()"`
}

// ProjectDTO is the API representation of a project
type ProjectDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	QuadrigaID   *string   `json:"quadrigaId,omitempty"`
	OwnerID      string    `json:"ownerId"`
	Participants []string  `json:"participants"`
	TextCount    int       `json:"textCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToDTO converts a project; participants and counts are filled by the service.
func (p *Project) ToDTO() ProjectDTO {
	return ProjectDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		QuadrigaID:   p.QuadrigaID,
		OwnerID:      p.OwnerID,
		Participants: []string{},
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	QuadrigaID  *string `json:"quadrigaId" validate:"omitempty,max=255"`
}

// UpdateProjectRequest is the body of PATCH /api/projects/:id
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	QuadrigaID  *string `json:"quadrigaId" validate:"omitempty,max=255"`
}
