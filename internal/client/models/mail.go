package models

import "time"

// MailContent is the decrypted payload of one envelope copy.
type MailContent struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Time    time.Time `json:"time"`
}

// Mail is the application-visible unit: event data merged with the
// decrypted content. Hash is set for mails resolved through a thread
// manifest and holds the content-store link of the envelope.
type Mail struct {
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     int64  `json:"blockNumber,omitempty"`
	MailEventArgs
	MailContent
	Hash string `json:"hash,omitempty"`
}

// NewMail merges an event with its decrypted content.
func NewMail(ev MailEvent, content MailContent) Mail {
	return Mail{
		TransactionHash: ev.TransactionHash,
		BlockNumber:     ev.BlockNumber,
		MailEventArgs:   ev.Args,
		MailContent:     content,
	}
}
