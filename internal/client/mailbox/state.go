package mailbox

import "github.com/dmitrijs2005/melonmail/internal/client/models"

// Status is the load state of a folder.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MailboxState is the view of one folder. Mails never contain two entries
// with the same ThreadID. FetchedFromBlock is nil until the first page
// arrives and only moves backwards afterwards.
type MailboxState struct {
	Mails            []models.Mail
	FetchedFromBlock *int64
	BatchSize        int64
	Status           Status
}

func (m MailboxState) clone() MailboxState {
	out := m
	out.Mails = append([]models.Mail(nil), m.Mails...)
	if m.FetchedFromBlock != nil {
		b := *m.FetchedFromBlock
		out.FetchedFromBlock = &b
	}
	return out
}

// Exhausted reports whether paging has reached startingBlock.
func (m MailboxState) Exhausted(startingBlock int64) bool {
	return m.FetchedFromBlock != nil && *m.FetchedFromBlock <= startingBlock
}

// ThreadState is the conversation currently open for replies.
type ThreadState struct {
	Thread     []models.Mail
	ThreadHash string
	ThreadID   string
}

func (t ThreadState) clone() ThreadState {
	out := t
	out.Thread = append([]models.Mail(nil), t.Thread...)
	return out
}

// uniqueByThread keeps the first mail of every thread, preserving order.
func uniqueByThread(mails []models.Mail) []models.Mail {
	seen := make(map[string]struct{}, len(mails))
	out := make([]models.Mail, 0, len(mails))
	for _, m := range mails {
		if _, ok := seen[m.ThreadID]; ok {
			continue
		}
		seen[m.ThreadID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// appendPage merges an older page behind the existing mails; the mail
// already shown wins.
func appendPage(existing, page []models.Mail) []models.Mail {
	merged := make([]models.Mail, 0, len(existing)+len(page))
	merged = append(merged, existing...)
	merged = append(merged, page...)
	return uniqueByThread(merged)
}

// prependMail puts a newly arrived mail in front; it replaces any older
// mail of the same thread.
func prependMail(existing []models.Mail, mail models.Mail) []models.Mail {
	merged := make([]models.Mail, 0, len(existing)+1)
	merged = append(merged, mail)
	merged = append(merged, existing...)
	return uniqueByThread(merged)
}
