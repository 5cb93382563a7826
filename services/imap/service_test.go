package imap

import (
	"bytes"
	"context"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailtriage/config"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/mocks"
	"github.com/customeros/mailtriage/internal/models"
)

type fakeMailbox struct {
	messages map[uint32]string
	selected string
	readOnly bool
	criteria *imap.SearchCriteria
	fetched  []imap.FetchItem
	loggedOut bool
}

func (f *fakeMailbox) Login(string, string) error { return nil }

func (f *fakeMailbox) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	f.selected = name
	f.readOnly = readOnly
	return imap.NewMailboxStatus(name, nil), nil
}

func (f *fakeMailbox) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	f.criteria = criteria
	var seqNums []uint32
	for seq := range f.messages {
		seqNums = append(seqNums, seq)
	}
	return seqNums, nil
}

func (f *fakeMailbox) Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	f.fetched = items
	for seq, data := range f.messages {
		if !seqset.Contains(seq) {
			continue
		}
		msg := imap.NewMessage(seq, items)
		msg.Body = map[*imap.BodySectionName]imap.Literal{
			{}: bytes.NewBufferString(data),
		}
		ch <- msg
	}
	return nil
}

func (f *fakeMailbox) Logout() error {
	f.loggedOut = true
	return nil
}

func (f *fakeMailbox) Terminate() error { return nil }

func testConfig() *config.IMAPConfig {
	return &config.IMAPConfig{
		Host:              "imap.example.com",
		Port:              993,
		User:              "me@example.com",
		Password:          "secret",
		Folder:            "INBOX",
		SSL:               true,
		AttachmentMaxSize: 1 << 20,
	}
}

func newTestService(cfg *config.IMAPConfig, repo *mocks.EmailRepository, mailbox *fakeMailbox) *IMAPService {
	svc := NewIMAPService(cfg, logger.NewNopLogger(), repo, nil)
	svc.dial = func(context.Context, *config.IMAPConfig) (mailboxClient, error) {
		return mailbox, nil
	}
	return svc
}

func TestIMAPService_Fetch_NotConfigured(t *testing.T) {
	repo := new(mocks.EmailRepository)
	cfg := testConfig()
	cfg.Password = ""

	svc := NewIMAPService(cfg, logger.NewNopLogger(), repo, nil)
	svc.dial = func(context.Context, *config.IMAPConfig) (mailboxClient, error) {
		t.Fatal("dial must not be called without configuration")
		return nil, nil
	}

	result, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.False(t, svc.Configured())
}

func TestIMAPService_Fetch(t *testing.T) {
	mailbox := &fakeMailbox{messages: map[uint32]string{
		1: multipartMessage("<m1@acme.com>", "0123456789"),
	}}
	repo := new(mocks.EmailRepository)
	repo.On("UpsertWithAttachments", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.MessageID == "<m1@acme.com>"
	}), mock.MatchedBy(func(a []*models.EmailAttachment) bool {
		return len(a) == 1
	})).Return(true, nil).Once()

	svc := newTestService(testConfig(), repo, mailbox)
	result, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.AttachmentsStored)
	assert.Equal(t, "INBOX", mailbox.selected)
	assert.True(t, mailbox.readOnly)
	assert.Equal(t, []string{imap.SeenFlag}, mailbox.criteria.WithoutFlags)
	assert.False(t, mailbox.criteria.Since.IsZero())
	assert.True(t, mailbox.loggedOut)
	require.Len(t, mailbox.fetched, 1)
	assert.Equal(t, imap.FetchItem("BODY.PEEK[]"), mailbox.fetched[0])
	repo.AssertExpectations(t)
}

func TestIMAPService_Fetch_PartialFailure(t *testing.T) {
	mailbox := &fakeMailbox{messages: map[uint32]string{
		1: multipartMessage("<ok@x>", "a"),
		2: multipartMessage("<broken@x>", "b"),
		3: multipartMessage("<dup@x>", "c"),
		4: "",
	}}
	repo := new(mocks.EmailRepository)
	repo.On("UpsertWithAttachments", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.MessageID == "<ok@x>"
	}), mock.Anything).Return(true, nil)
	repo.On("UpsertWithAttachments", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.MessageID == "<broken@x>"
	}), mock.Anything).Return(false, triageerrors.Mark(errors.New("constraint"), triageerrors.ErrStoreIO))
	repo.On("UpsertWithAttachments", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.MessageID == "<dup@x>"
	}), mock.Anything).Return(false, nil)

	svc := newTestService(testConfig(), repo, mailbox)
	result, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Found)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 2, result.Failed)
}

func TestIMAPService_Fetch_ConnectionFailure(t *testing.T) {
	repo := new(mocks.EmailRepository)
	svc := NewIMAPService(testConfig(), logger.NewNopLogger(), repo, nil)
	svc.dial = func(context.Context, *config.IMAPConfig) (mailboxClient, error) {
		return nil, errors.New("connection refused")
	}

	_, err := svc.Fetch(context.Background())
	assert.ErrorIs(t, err, triageerrors.ErrIMAPConnection)
	repo.AssertNotCalled(t, "UpsertWithAttachments", mock.Anything, mock.Anything, mock.Anything)
}

func TestIMAPService_Fetch_NoMessages(t *testing.T) {
	repo := new(mocks.EmailRepository)
	svc := newTestService(testConfig(), repo, &fakeMailbox{})

	result, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Found)
	assert.False(t, result.Skipped)
}

func TestIMAPService_Fetch_InProgress(t *testing.T) {
	svc := newTestService(testConfig(), new(mocks.EmailRepository), &fakeMailbox{})

	svc.running.Lock()
	defer svc.running.Unlock()

	_, err := svc.Fetch(context.Background())
	assert.ErrorIs(t, err, triageerrors.ErrFetchInProgress)
}
