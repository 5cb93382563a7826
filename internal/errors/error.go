package errors

import "github.com/pkg/errors"

var (
	// store errors
	ErrEmailNotFound     = errors.New("email not found")
	ErrStoreIO           = errors.New("message store failure")
	ErrNotAwaitingReview = errors.New("email is not awaiting review")
	ErrInvalidInput      = errors.New("invalid input parameters")

	// ingestion errors
	ErrIMAPNotConfigured = errors.New("imap host, user and password must be configured")
	ErrIMAPConnection    = errors.New("imap connection failed")
	ErrMessageIngest     = errors.New("message could not be ingested")
	ErrFetchInProgress   = errors.New("imap fetch already in progress")

	// triage errors
	ErrClassificationFailure = errors.New("classification failed")
	ErrReportWrite           = errors.New("report could not be written")
	ErrMarkIncomplete        = errors.New("not all classified emails were marked processed")
	ErrRoundInProgress       = errors.New("triage round already in progress")

	// review errors
	ErrInvalidReviewTag = errors.New("status cannot be assigned during review")
)

// Mark attaches sentinel to err so that errors.Is matches both.
func Mark(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	return &marked{cause: err, sentinel: sentinel}
}

type marked struct {
	cause    error
	sentinel error
}

func (m *marked) Error() string {
	return m.sentinel.Error() + ": " + m.cause.Error()
}

func (m *marked) Unwrap() []error {
	return []error{m.sentinel, m.cause}
}

func (m *marked) Cause() error {
	return m.cause
}
