// Package models defines the client-side mail data model: ledger events,
// encrypted envelopes stored in the content store, thread manifests and the
// decrypted mails shown to the user.
package models

import (
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/common"
)

// Folder is one of the two mailbox partitions.
type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderOutbox Folder = "outbox"
)

// Folders lists every folder in display order.
var Folders = []Folder{FolderInbox, FolderOutbox}

// ParseFolder validates s as a folder name.
func ParseFolder(s string) (Folder, error) {
	switch Folder(s) {
	case FolderInbox, FolderOutbox:
		return Folder(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, common.ErrUnknownFolder)
	}
}

func (f Folder) String() string {
	return string(f)
}
