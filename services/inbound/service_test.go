package inbound

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailtriage/dto"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/metrics"
	"github.com/customeros/mailtriage/internal/mocks"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/utils"
)

func inboundEmail(messageID string) dto.InboundEmail {
	return dto.InboundEmail{
		MessageID: messageID,
		Subject:   utils.ToPtr("hello"),
		Sender:    utils.ToPtr("a@example.com"),
		Date:      utils.ToPtr("Mon, 1 Jan 2024 10:00:00 +0000"),
		Body:      utils.ToPtr("hi"),
	}
}

func TestInboundService_Receive(t *testing.T) {
	repo := new(mocks.EmailRepository)
	html := "<p>pay</p>"
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.MessageID == "<m1@x>" &&
			e.Subject == "Invoice #42" &&
			e.Body == "Please pay" &&
			e.HTMLBody != nil && *e.HTMLBody == html &&
			!e.Processed && e.Status == nil && !e.ReceivedAt.IsZero()
	})).Return(true, nil).Once()

	svc := NewInboundService(logger.NewNopLogger(), repo, metrics.NewMetrics())
	result, err := svc.Receive(context.Background(), dto.InboundEmail{
		MessageID: " <m1@x> ",
		Subject:   utils.ToPtr("Invoice #42"),
		Sender:    utils.ToPtr("billing@acme.com"),
		Date:      utils.ToPtr("Mon, 1 Jan 2024 10:00:00 +0000"),
		Body:      utils.ToPtr("Please pay"),
		HTMLBody:  &html,
	})

	require.NoError(t, err)
	assert.Equal(t, "<m1@x>", result.MessageID)
	assert.False(t, result.Duplicate)
	repo.AssertExpectations(t)
}

func TestInboundService_Receive_Duplicate(t *testing.T) {
	repo := new(mocks.EmailRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(false, nil).Once()

	svc := NewInboundService(logger.NewNopLogger(), repo, nil)
	result, err := svc.Receive(context.Background(), inboundEmail("<m1@x>"))

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
}

func TestInboundService_Receive_MissingMessageID(t *testing.T) {
	repo := new(mocks.EmailRepository)

	svc := NewInboundService(logger.NewNopLogger(), repo, nil)
	_, err := svc.Receive(context.Background(), inboundEmail("   "))

	assert.ErrorIs(t, err, triageerrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestInboundService_Receive_StoreFailure(t *testing.T) {
	repo := new(mocks.EmailRepository)
	storeErr := triageerrors.Mark(errors.New("disk full"), triageerrors.ErrStoreIO)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(false, storeErr).Once()

	svc := NewInboundService(logger.NewNopLogger(), repo, nil)
	_, err := svc.Receive(context.Background(), inboundEmail("<m1@x>"))

	assert.ErrorIs(t, err, triageerrors.ErrStoreIO)
}

func TestInboundService_Receive_MissingFields(t *testing.T) {
	repo := new(mocks.EmailRepository)
	svc := NewInboundService(logger.NewNopLogger(), repo, nil)

	in := inboundEmail("<m1@x>")
	in.Sender = nil
	in.Body = nil
	_, err := svc.Receive(context.Background(), in)

	assert.ErrorIs(t, err, triageerrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "sender, body")
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestInboundService_Receive_EmptyBodyAccepted(t *testing.T) {
	repo := new(mocks.EmailRepository)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.Body == "" && e.Subject == ""
	})).Return(true, nil).Once()

	svc := NewInboundService(logger.NewNopLogger(), repo, nil)
	in := inboundEmail("<m1@x>")
	in.Subject = utils.ToPtr("")
	in.Body = utils.ToPtr("")
	_, err := svc.Receive(context.Background(), in)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
