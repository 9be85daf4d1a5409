package models

import "time"

// Folder selects the side of an event an account is on.
type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderOutbox Folder = "outbox"
)

// MailEvent is one mined mail. Every event occupies its own block.
type MailEvent struct {
	TransactionHash string
	BlockNumber     int64
	MailHash        string
	ThreadHash      string
	ThreadID        string
	FromAddress     string
	ToAddress       string
	CreatedAt       time.Time
}
