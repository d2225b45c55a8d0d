package giles

import (
	"time"

	"github.com/uptrace/bun"
)

// TaskImportUpload imports the documents of one Giles upload as texts.
const TaskImportUpload = "giles.import_upload"

// Token is the Giles access token of a user. One per user.
type Token struct {
	bun.BaseModel `bun:"table:giles_tokens,alias:gt"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID    string    `bun:"user_id,notnull,type:uuid" json:"userId"`
	Token     string    `bun:"token,notnull" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// TokenStatus is returned by GET /api/giles/token; the token itself stays server side.
type TokenStatus struct {
	HasToken  bool       `json:"hasToken"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ExchangeRequest is the body of POST /api/giles/token
type ExchangeRequest struct {
	ProviderToken string `json:"providerToken" validate:"required"`
}

// File is a stored file as reported by Giles.
type File struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content-type"`
	URL         string `json:"url"`
}

// Document is one uploaded document with its derived files.
type Document struct {
	DocumentID    string `json:"documentId"`
	UploadedFile  File   `json:"uploadedFile"`
	ExtractedText *File  `json:"extractedText,omitempty"`
}

// Upload groups the documents sent to Giles in one request.
type Upload struct {
	ID           string     `json:"id"`
	UploadedDate string     `json:"uploadedDate"`
	Documents    []Document `json:"documents"`
}

// ImportPayload is the payload of TaskImportUpload.
type ImportPayload struct {
	UserID   string `json:"userId"`
	UploadID string `json:"uploadId"`
}

// ImportResult summarises one upload import.
type ImportResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// EnqueueResponse is returned by POST /api/giles/uploads/:id/import
type EnqueueResponse struct {
	TaskID string `json:"taskId"`
}
