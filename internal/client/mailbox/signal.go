package mailbox

import (
	"context"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
)

// SignalKind names an observable state transition.
type SignalKind int

const (
	SignalMailboxRequest SignalKind = iota
	SignalMailboxSuccess
	SignalMailboxError
	SignalNoMoreMail
	SignalThreadRequest
	SignalThreadSuccess
	SignalThreadError
	SignalNewMail
	SignalComposeClosed
	SignalFolderChanged
)

var signalNames = map[SignalKind]string{
	SignalMailboxRequest: "mailbox_request",
	SignalMailboxSuccess: "mailbox_success",
	SignalMailboxError:   "mailbox_error",
	SignalNoMoreMail:     "no_more_mail",
	SignalThreadRequest:  "thread_request",
	SignalThreadSuccess:  "thread_success",
	SignalThreadError:    "thread_error",
	SignalNewMail:        "new_mail",
	SignalComposeClosed:  "compose_closed",
	SignalFolderChanged:  "folder_changed",
}

func (k SignalKind) String() string {
	if n, ok := signalNames[k]; ok {
		return n
	}
	return "unknown"
}

// Signal carries the data of one transition. Only the fields relevant to
// Kind are set.
type Signal struct {
	Kind      SignalKind
	Folder    models.Folder
	Mails     []models.Mail
	Mail      *models.Mail
	FromBlock *int64
	Thread    *ThreadState
	Err       error
}

// Notifier receives signals. Notify is called outside the session lock and
// may be called from the live subscription goroutine.
type Notifier interface {
	Notify(ctx context.Context, s Signal)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, s Signal)

func (f NotifierFunc) Notify(ctx context.Context, s Signal) {
	f(ctx, s)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Signal) {}
