package relations

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vogonweb/vogon/pkg/tracing"
)

// RefreshHandler runs TaskRefreshRepresentation on the worker.
type RefreshHandler struct {
	svc *Service
}

func NewRefreshHandler(svc *Service) *RefreshHandler {
	return &RefreshHandler{svc: svc}
}

func (h *RefreshHandler) Name() string { return TaskRefreshRepresentation }

func (h *RefreshHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var p RefreshPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.RelationSetID == "" {
		return fmt.Errorf("relationSetId missing")
	}
	ctx, span := tracing.Start(ctx, "relationsets.refresh",
		attribute.String("vogon.relation_set_id", p.RelationSetID),
	)
	defer span.End()
	return tracing.RecordError(span, h.svc.Refresh(ctx, p.RelationSetID))
}
