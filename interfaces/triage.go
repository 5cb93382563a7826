package interfaces

import (
	"context"
	"io"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
)

type InboundService interface {
	Receive(ctx context.Context, inbound dto.InboundEmail) (*dto.ReceiveResult, error)
}

type TriageService interface {
	RunRound(ctx context.Context) (*dto.TriageResult, error)
}

// ReportWriter persists a rendered report and returns where it was stored.
type ReportWriter interface {
	Save(ctx context.Context, markdown string) (string, error)
}

type ReviewService interface {
	Pending(ctx context.Context) ([]*models.Email, error)
	Get(ctx context.Context, messageID string) (*models.Email, error)
	Assign(ctx context.Context, messageID string, status enum.EmailStatus) error
	RunConsole(ctx context.Context, in io.Reader, out io.Writer) (int, error)
}
