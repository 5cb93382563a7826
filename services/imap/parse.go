package imap

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/utils"
)

const defaultAttachmentName = "attachment"

type rawMessage struct {
	seqNum uint32
	data   []byte
}

type skippedAttachment struct {
	filename string
	size     int
}

type parsedMessage struct {
	email       *models.Email
	attachments []*models.EmailAttachment
	skipped     []skippedAttachment
}

// parseMessage turns an RFC 822 message into an unprocessed email plus the
// attachments that fit under maxAttachmentSize.
func parseMessage(raw rawMessage, host string, maxAttachmentSize int) (*parsedMessage, error) {
	if len(raw.data) == 0 {
		return nil, errors.Wrapf(triageerrors.ErrMessageIngest, "message %d has no body", raw.seqNum)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw.data))
	if err != nil {
		return nil, triageerrors.Mark(errors.Wrapf(err, "failed to parse message %d", raw.seqNum), triageerrors.ErrMessageIngest)
	}

	messageID := utils.NormalizeMessageID(env.GetHeader("Message-ID"))
	if messageID == "" {
		messageID = utils.SyntheticMessageID(raw.seqNum, host)
	}

	parsed := &parsedMessage{
		email: &models.Email{
			MessageID:  messageID,
			Subject:    env.GetHeader("Subject"),
			Sender:     env.GetHeader("From"),
			Date:       env.GetHeader("Date"),
			ReceivedAt: utils.Now(),
		},
	}
	if hint, _ := headerHint(env); hint != "" {
		parsed.email.HeaderHint = utils.ToPtr(hint)
	}

	root := env.Root
	if root == nil {
		return parsed, nil
	}
	if root.FirstChild == nil {
		parsed.email.Body = string(root.Content)
		return parsed, nil
	}

	var bodySet bool
	for _, part := range root.DepthMatchAll(func(p *enmime.Part) bool { return p.FirstChild == nil }) {
		if strings.EqualFold(part.Disposition, "attachment") {
			parsed.addAttachment(part, maxAttachmentSize)
			continue
		}

		switch strings.ToLower(part.ContentType) {
		case "text/plain":
			if !bodySet {
				parsed.email.Body = string(part.Content)
				bodySet = true
			}
		case "text/html":
			if parsed.email.HTMLBody == nil {
				parsed.email.HTMLBody = utils.ToPtr(string(part.Content))
			}
		}
	}

	return parsed, nil
}

func (p *parsedMessage) addAttachment(part *enmime.Part, maxAttachmentSize int) {
	filename := part.FileName
	if filename == "" {
		filename = defaultAttachmentName
	}

	if len(part.Content) > maxAttachmentSize {
		p.skipped = append(p.skipped, skippedAttachment{filename: filename, size: len(part.Content)})
		return
	}

	p.attachments = append(p.attachments, &models.EmailAttachment{
		MessageID:   p.email.MessageID,
		Filename:    filename,
		ContentType: part.ContentType,
		Size:        len(part.Content),
		Data:        part.Content,
	})
}
