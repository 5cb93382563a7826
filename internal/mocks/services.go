package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
)

type Classifier struct {
	mock.Mock
}

func (m *Classifier) Classify(ctx context.Context, emails []*models.Email) (*dto.Classification, error) {
	args := m.Called(ctx, emails)
	result, _ := args.Get(0).(*dto.Classification)
	return result, args.Error(1)
}

func (m *Classifier) Name() string {
	return "mock"
}

type ReportWriter struct {
	mock.Mock
}

func (m *ReportWriter) Save(ctx context.Context, markdown string) (string, error) {
	args := m.Called(ctx, markdown)
	return args.String(0), args.Error(1)
}

type StorageService struct {
	mock.Mock
}

func (m *StorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *StorageService) GetPublicURL(key string) string {
	args := m.Called(key)
	if fn, ok := args.Get(0).(func(string) string); ok {
		return fn(key)
	}
	return args.String(0)
}

type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishTriageCompleted(ctx context.Context, roundID string, event dto.TriageCompleted) error {
	args := m.Called(ctx, roundID, event)
	return args.Error(0)
}

func (m *EventPublisher) Close() error {
	return nil
}

type InboundService struct {
	mock.Mock
}

func (m *InboundService) Receive(ctx context.Context, inbound dto.InboundEmail) (*dto.ReceiveResult, error) {
	args := m.Called(ctx, inbound)
	result, _ := args.Get(0).(*dto.ReceiveResult)
	return result, args.Error(1)
}

type IMAPService struct {
	mock.Mock
}

func (m *IMAPService) Fetch(ctx context.Context) (*dto.FetchResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*dto.FetchResult)
	return result, args.Error(1)
}

func (m *IMAPService) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

type TriageService struct {
	mock.Mock
}

func (m *TriageService) RunRound(ctx context.Context) (*dto.TriageResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*dto.TriageResult)
	return result, args.Error(1)
}

type ReviewService struct {
	mock.Mock
}

func (m *ReviewService) Pending(ctx context.Context) ([]*models.Email, error) {
	args := m.Called(ctx)
	emails, _ := args.Get(0).([]*models.Email)
	return emails, args.Error(1)
}

func (m *ReviewService) Get(ctx context.Context, messageID string) (*models.Email, error) {
	args := m.Called(ctx, messageID)
	email, _ := args.Get(0).(*models.Email)
	return email, args.Error(1)
}

func (m *ReviewService) Assign(ctx context.Context, messageID string, status enum.EmailStatus) error {
	args := m.Called(ctx, messageID, status)
	return args.Error(0)
}

func (m *ReviewService) RunConsole(ctx context.Context, in io.Reader, out io.Writer) (int, error) {
	args := m.Called(ctx, in, out)
	return args.Int(0), args.Error(1)
}
