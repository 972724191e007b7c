package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

// HistorySink persists step records as they are appended.
type HistorySink interface {
	Write(ctx context.Context, runID string, record entity.StepRecord) error
	Close() error
}
