package interfaces

import (
	"context"

	"github.com/customeros/mailtriage/dto"
)

type IMAPService interface {
	Fetch(ctx context.Context) (*dto.FetchResult, error)
	Configured() bool
}
