package stage

import (
	"context"

	"scribe/internal/workitem"
)

// Handler describes the contract the pipeline controller needs from each stage.
type Handler interface {
	Prepare(context.Context, *workitem.Item) error
	Execute(context.Context, *workitem.Item) error
	HealthCheck(context.Context) Health
}
