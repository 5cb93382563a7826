package imap

import (
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailtriage/internal/enum"
)

func envelope(t *testing.T, headers ...string) *enmime.Envelope {
	t.Helper()
	raw := strings.Join(append(headers, "Content-Type: text/plain", "", "body"), "\r\n")
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	require.NoError(t, err)
	return env
}

func TestHeaderHint(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		want    enum.EmailStatus
	}{
		{"plain", []string{"From: alice@example.com", "Subject: lunch?"}, ""},
		{"bounce header", []string{"From: alice@example.com", "X-Failed-Recipients: bob@example.com"}, enum.EmailStatusAutoResponded},
		{"bounce sender", []string{"From: MAILER-DAEMON@mx.example.com", "Subject: hi"}, enum.EmailStatusAutoResponded},
		{"bounce subject", []string{"From: postmaster@example.com", "Subject: Undelivered Mail Returned to Sender"}, enum.EmailStatusAutoResponded},
		{"auto submitted", []string{"From: alice@example.com", "Auto-Submitted: auto-replied"}, enum.EmailStatusAutoResponded},
		{"auto submitted no", []string{"From: alice@example.com", "Auto-Submitted: no"}, ""},
		{"x-autoreply", []string{"From: alice@example.com", "X-Autoreply: yes"}, enum.EmailStatusAutoResponded},
		{"list unsubscribe", []string{"From: news@example.com", "List-Unsubscribe: <mailto:u@example.com>"}, enum.EmailStatusNewsletter},
		{"precedence bulk", []string{"From: news@example.com", "Precedence: bulk"}, enum.EmailStatusNewsletter},
		{"sender differs", []string{"From: Alice <alice@example.com>", "Sender: relay@esp.example.net"}, enum.EmailStatusNewsletter},
		{"sender same", []string{"From: Alice <alice@example.com>", "Sender: ALICE@example.com"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := headerHint(envelope(t, tc.headers...))
			assert.Equal(t, tc.want, got)
			if tc.want != "" {
				assert.NotEmpty(t, reason)
			}
		})
	}
}
