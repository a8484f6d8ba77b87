package broker

import (
	"context"
	"fmt"

	"ingest-service/internal/models"
)

// RunEventPublisher handles publishing pipeline run events
type RunEventPublisher struct {
	producer *Producer
}

// NewRunEventPublisher creates a new run event publisher
func NewRunEventPublisher(producer *Producer) *RunEventPublisher {
	return &RunEventPublisher{producer: producer}
}

// PublishRunStarted publishes RunStarted event
func (ep *RunEventPublisher) PublishRunStarted(ctx context.Context, event *models.RunStartedEvent) error {
	key := fmt.Sprintf("run-%s", event.RunID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRunCompleted publishes RunCompleted event
func (ep *RunEventPublisher) PublishRunCompleted(ctx context.Context, event *models.RunCompletedEvent) error {
	key := fmt.Sprintf("run-%s", event.RunID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRunFailed publishes RunFailed event
func (ep *RunEventPublisher) PublishRunFailed(ctx context.Context, event *models.RunFailedEvent) error {
	key := fmt.Sprintf("run-%s", event.RunID)
	return ep.producer.PublishEvent(ctx, key, event)
}
