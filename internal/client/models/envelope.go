package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is the object stored in the content store for every mail: two
// independently sealed copies of the same message, one for each party.
type Envelope struct {
	SenderData   string `json:"senderData"`
	ReceiverData string `json:"receiverData"`
	ToAddress    string `json:"toAddress"`
	FromAddress  string `json:"fromAddress,omitempty"`
}

// ParseEnvelope decodes an envelope fetched from the content store.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &e, nil
}

// Marshal encodes the envelope for upload.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// CiphertextFor selects the copy readable in the given folder: the inbox
// reads the receiver copy, the outbox the sender copy.
func (e *Envelope) CiphertextFor(folder Folder) string {
	if folder == FolderInbox {
		return e.ReceiverData
	}
	return e.SenderData
}

// CiphertextForAccount selects the copy readable by account when the folder
// is not known, as in a reconstructed thread.
func (e *Envelope) CiphertextForAccount(account string) string {
	if strings.EqualFold(e.ToAddress, account) {
		return e.ReceiverData
	}
	return e.SenderData
}
