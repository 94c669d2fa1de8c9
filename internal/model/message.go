// Package model defines the records shared by the store, pipeline and CRM
// sinks: incoming replies, leads, autoresponses and follow-ups.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// IncomingMessage is one prospect reply as received from the mailbox or an
// import file.
type IncomingMessage struct {
	MessageID       string    `json:"message_id,omitempty" csv:"message_id,omitempty"`
	Body            string    `json:"body" csv:"body"`
	SenderEmail     string    `json:"sender_email" csv:"sender_email"`
	SenderName      string    `json:"sender_name,omitempty" csv:"sender_name,omitempty"`
	SenderCompany   string    `json:"sender_company,omitempty" csv:"sender_company,omitempty"`
	CampaignID      string    `json:"campaign_id,omitempty" csv:"campaign_id,omitempty"`
	AudienceSegment string    `json:"audience_segment,omitempty" csv:"audience_segment,omitempty"`
	TriggerWord     string    `json:"trigger_word,omitempty" csv:"trigger_word,omitempty"`
	ReceivedAt      time.Time `json:"received_at" csv:"received_at,omitempty"`
}

// Key identifies a message for deduplication. The provider message ID is
// used when present; otherwise the sender, campaign and body are hashed.
func (m IncomingMessage) Key() string {
	if id := strings.TrimSpace(m.MessageID); id != "" {
		return "msg:" + id
	}
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(m.SenderEmail))))
	h.Write([]byte{0})
	h.Write([]byte(m.CampaignID))
	h.Write([]byte{0})
	h.Write([]byte(m.Body))
	return "sha:" + hex.EncodeToString(h.Sum(nil))
}
