package giles

import (
	"context"
	"encoding/json"
	"fmt"
)

// ImportHandler runs TaskImportUpload on the worker.
type ImportHandler struct {
	svc *Service
}

func NewImportHandler(svc *Service) *ImportHandler {
	return &ImportHandler{svc: svc}
}

func (h *ImportHandler) Name() string { return TaskImportUpload }

func (h *ImportHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var p ImportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.UserID == "" || p.UploadID == "" {
		return fmt.Errorf("userId and uploadId are required")
	}
	_, err := h.svc.ImportUpload(ctx, p)
	return err
}
