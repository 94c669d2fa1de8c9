package pipeline

import (
	"net/mail"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrInvalidMessage marks input rejected before processing.
var ErrInvalidMessage = eris.New("pipeline: invalid message")

// maxBodyRunes caps how much of a reply body is kept.
const maxBodyRunes = 20000

// Normalize applies NFKC to free text, trims whitespace and lowercases the
// sender address.
func Normalize(msg model.IncomingMessage) model.IncomingMessage {
	msg.Body = strings.TrimSpace(norm.NFKC.String(msg.Body))
	if r := []rune(msg.Body); len(r) > maxBodyRunes {
		msg.Body = string(r[:maxBodyRunes])
	}
	msg.SenderName = strings.TrimSpace(norm.NFKC.String(msg.SenderName))
	msg.SenderCompany = strings.TrimSpace(norm.NFKC.String(msg.SenderCompany))
	msg.SenderEmail = strings.ToLower(strings.TrimSpace(msg.SenderEmail))
	msg.TriggerWord = strings.ToUpper(strings.TrimSpace(msg.TriggerWord))
	msg.CampaignID = strings.TrimSpace(msg.CampaignID)
	msg.AudienceSegment = strings.TrimSpace(msg.AudienceSegment)
	msg.MessageID = strings.TrimSpace(msg.MessageID)
	if !msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = msg.ReceivedAt.UTC()
	}
	return msg
}

// Validate checks the sender address. An empty body is allowed and
// classifies as the default intent.
func Validate(msg model.IncomingMessage) error {
	if msg.SenderEmail == "" {
		return eris.Wrap(ErrInvalidMessage, "sender email is required")
	}
	addr, err := mail.ParseAddress(msg.SenderEmail)
	if err != nil || addr.Address != msg.SenderEmail {
		return eris.Wrapf(ErrInvalidMessage, "sender email %q is not a bare address", msg.SenderEmail)
	}
	return nil
}
