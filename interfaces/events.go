package interfaces

import (
	"context"

	"github.com/customeros/mailtriage/dto"
)

type EventPublisher interface {
	PublishTriageCompleted(ctx context.Context, roundID string, event dto.TriageCompleted) error
	Close() error
}
