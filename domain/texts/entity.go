package texts

import (
	"time"

	"github.com/uptrace/bun"
)

// Document types.
const (
	DocumentTypePlainText = "PT"
	DocumentTypeImage     = "IM"
	DocumentTypeHypertext = "HP"
)

// Text is a document that can be annotated.
type Text struct {
	bun.BaseModel `bun:"table:texts,alias:t"`

	ID               string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	URI              string    `bun:"uri,notnull" json:"uri"`
	Title            string    `bun:"title,notnull" json:"title"`
	ContentType      string    `bun:"content_type,notnull" json:"contentType"`
	DocumentType     *string   `bun:"document_type" json:"documentType,omitempty"`
	DocumentLocation string    `bun:"document_location,notnull" json:"documentLocation"`
	TokenizedContent string    `bun:"tokenized_content,notnull" json:"-"`
	OriginalContent  string    `bun:"original_content,notnull" json:"-"`
	RepositoryID     *string   `bun:"repository_id,type:uuid" json:"repositoryId,omitempty"`
	PartOfID         *string   `bun:"part_of_id,type:uuid" json:"partOfId,omitempty"`
	Public           bool      `bun:"public,notnull" json:"public"`
	AddedBy          *string   `bun:"added_by,type:uuid" json:"addedBy,omitempty"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// TextDetail includes the content, returned for a single text.
type TextDetail struct {
	*Text
	TokenizedContent string `json:"tokenizedContent"`
	OriginalContent  string `json:"originalContent"`
}

// CreateRequest is the body of POST /api/texts (plain text upload)
type CreateRequest struct {
	Title        string  `json:"title" validate:"required,max=1000"`
	Content      string  `json:"content" validate:"required"`
	URI          string  `json:"uri" validate:"omitempty,max=2000"`
	RepositoryID *string `json:"repositoryId" validate:"omitempty,uuid"`
	PartOfID     *string `json:"partOfId" validate:"omitempty,uuid"`
	Public       *bool   `json:"public"`
}

// ImportRequest creates a text from an external source.
type ImportRequest struct {
	Title            string
	URI              string
	Content          string
	ContentType      string
	DocumentLocation string
	RepositoryID     string
	AddedBy          string
	Public           bool
}

// UpdateRequest is the body of PATCH /api/texts/:id. An empty partOfId detaches the text.
type UpdateRequest struct {
	Title    *string `json:"title" validate:"omitempty,max=1000"`
	Public   *bool   `json:"public"`
	PartOfID *string `json:"partOfId" validate:"omitempty,uuid"`
}

// ListFilter narrows GET /api/texts
type ListFilter struct {
	RepositoryID string
	ProjectID    string
	PartOfID     string
	Search       string
	// UserID limits results to texts the user may read
	UserID string
	Limit  int
	Offset int
}

// ListResponse is a page of texts.
type ListResponse struct {
	Texts []Text `json:"texts"`
	Total int    `json:"total"`
}

// ProjectRef names a project a text belongs to.
type ProjectRef struct {
	ID   string `bun:"id" json:"id"`
	Name string `bun:"name" json:"name"`
}
