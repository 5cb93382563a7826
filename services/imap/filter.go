package imap

import (
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/customeros/mailtriage/internal/enum"
)

var bounceSubjects = []string{
	"mail delivery failure",
	"undelivered mail returned to sender",
	"delivery status notification",
	"undeliverable",
	"delivery failure",
	"failure notice",
	"returned mail",
	"returned to sender",
}

// headerHint inspects the transport headers of a message for automated
// mail. Bounces and autoresponders map to auto-responded, bulk mail to
// newsletter. It returns "" when the headers say nothing.
func headerHint(env *enmime.Envelope) (enum.EmailStatus, string) {
	if bounce, reason := isBounceNotification(env); bounce {
		return enum.EmailStatusAutoResponded, reason
	}
	if auto, reason := isAutoresponder(env); auto {
		return enum.EmailStatusAutoResponded, reason
	}
	if bulk, reason := isBulkEmail(env); bulk {
		return enum.EmailStatusNewsletter, reason
	}
	return "", ""
}

func isBounceNotification(env *enmime.Envelope) (bool, string) {
	switch {
	case env.GetHeader("X-Failed-Recipients") != "":
		return true, "X-FAILED-RECIPIENTS header present"
	case strings.EqualFold(env.GetHeader("Content-Description"), "delivery report"):
		return true, "CONTENT-DESCRIPTION: DELIVERY REPORT header present"
	case hasBounceKeywords(env.GetHeader("Return-Path")):
		return true, "RETURN-PATH contains bounce keywords"
	case hasBounceKeywords(env.GetHeader("From")):
		return true, "FROM contains bounce keywords"
	case isBounceSubject(env.GetHeader("Subject")):
		return true, "SUBJECT contains bounce keywords"
	default:
		return false, ""
	}
}

func isAutoresponder(env *enmime.Envelope) (bool, string) {
	autoSubmitted := strings.ToLower(env.GetHeader("Auto-Submitted"))
	switch {
	case env.GetHeader("X-Autoreply") != "":
		return true, "X-AUTOREPLY header present"
	case env.GetHeader("X-Autorespond") != "":
		return true, "X-AUTORESPOND header present"
	case autoSubmitted != "" && autoSubmitted != "no":
		return true, "AUTO-SUBMITTED header present"
	case strings.EqualFold(env.GetHeader("Precedence"), "auto_reply"):
		return true, "PRECEDENCE: AUTO_REPLY header present"
	default:
		return false, ""
	}
}

func isBulkEmail(env *enmime.Envelope) (bool, string) {
	precedence := strings.ToLower(env.GetHeader("Precedence"))
	switch {
	case env.GetHeader("List-Unsubscribe") != "":
		return true, "UNSUBSCRIBE header present"
	case env.GetHeader("List-Id") != "":
		return true, "LIST-ID header present"
	case precedence == "bulk" || precedence == "list":
		return true, "PRECEDENCE: BULK header present"
	case differentAddress(env.GetHeader("Sender"), env.GetHeader("From")):
		return true, "SENDER != FROM"
	default:
		return false, ""
	}
}

// differentAddress compares the mailbox parts of two address headers. An
// empty or unparsable value never counts as different.
func differentAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	addrA, errA := mail.ParseAddress(a)
	addrB, errB := mail.ParseAddress(b)
	if errA != nil || errB != nil {
		return false
	}
	return !strings.EqualFold(addrA.Address, addrB.Address)
}

func hasBounceKeywords(s string) bool {
	return strings.Contains(strings.ToLower(s), "mailer-daemon")
}

func isBounceSubject(subject string) bool {
	subject = strings.ToLower(subject)
	for _, phrase := range bounceSubjects {
		if strings.Contains(subject, phrase) {
			return true
		}
	}
	return false
}
