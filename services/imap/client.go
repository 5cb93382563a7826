package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/config"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/tracing"
)

// mailboxClient is the subset of *client.Client the fetcher needs.
type mailboxClient interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
	Terminate() error
}

// dialFunc opens an authenticated session.
type dialFunc func(ctx context.Context, cfg *config.IMAPConfig) (mailboxClient, error)

// dialMailbox establishes a connection to the configured IMAP server and logs in
func dialMailbox(ctx context.Context, cfg *config.IMAPConfig) (mailboxClient, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.dialMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", cfg.Host)
	span.SetTag("port", cfg.Port)
	span.SetTag("tls", cfg.SSL)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error
	if cfg.SSL {
		c, err = client.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrapf(err, "failed to connect to %s", serverAddr), triageerrors.ErrIMAPConnection)
	}

	c.Timeout = timeout

	if err = c.Login(cfg.User, cfg.Password); err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrapf(err, "failed to login as %s", cfg.User), triageerrors.ErrIMAPConnection)
	}

	span.SetTag("success", true)
	return c, nil
}

// closeOnCancel terminates the session when ctx ends before stop is closed,
// unblocking any command in flight.
func closeOnCancel(ctx context.Context, c mailboxClient, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
		c.Terminate()
	case <-stop:
	}
}
