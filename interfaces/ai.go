package interfaces

import (
	"context"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/internal/models"
)

// Classifier assigns a status and summary to every email it is given and
// renders the markdown report for the batch.
type Classifier interface {
	Classify(ctx context.Context, emails []*models.Email) (*dto.Classification, error)
	Name() string
}
