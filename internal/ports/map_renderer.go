package ports

import (
	"context"
	"route-deviation-service/internal/domain"
)

// Sink that persists a map document as a visual artifact.
type MapRenderer interface {
	Render(ctx context.Context, doc domain.MapDocument) error
}
