package mailbox

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/logging"
)

// Subscription is a live event registration.
type Subscription struct {
	once sync.Once
	stop func()
}

// Unsubscribe stops delivery. It blocks until the in-flight event, if any,
// has been handled, so it must not be called from a Notifier.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Listener keeps a session's folders current as events are mined.
type Listener struct {
	ledger  ledger.Gateway
	content contentstore.Gateway
	logger  logging.Logger
}

// NewListener builds a Listener over the two gateways.
func NewListener(l ledger.Gateway, c contentstore.Gateway, logger logging.Logger) *Listener {
	return &Listener{ledger: l, content: c, logger: logger.With("module", "listener")}
}

// Subscribe starts delivering new mails of the account into sess. Each mail
// is put in front of its folder, replacing an older mail of the same
// thread, and announced with SignalNewMail. A previous subscription of the
// session is replaced.
func (l *Listener) Subscribe(ctx context.Context, sess *Session) (*Subscription, error) {
	if err := sess.checkOpen(); err != nil {
		return nil, err
	}

	stop, err := l.ledger.ListenForMails(ctx, func(ctx context.Context, ev models.TaggedEvent) {
		l.handle(ctx, sess, ev)
	})
	if err != nil {
		l.logger.Error(ctx, "subscribe failed", "error", err)
		return nil, err
	}

	sub := &Subscription{stop: stop}
	old, err := sess.setSubscription(sub)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	old.Unsubscribe()

	return sub, nil
}

func (l *Listener) handle(ctx context.Context, sess *Session, ev models.TaggedEvent) {
	release, err := sess.acquire()
	if err != nil {
		return
	}
	defer release()

	folder := ev.Folder
	pick := func(env *models.Envelope) string { return env.CiphertextFor(folder) }

	opened, err := openMail(ctx, l.content, sess.Keys(), ev.Event.Args.MailHash, pick)
	if err != nil {
		ferr := &FolderError{Folder: folder, Err: err}
		l.logger.Error(ctx, "live mail failed", "folder", folder, "tx", ev.Event.TransactionHash, "error", err)
		sess.notify(ctx, Signal{Kind: SignalMailboxError, Folder: folder, Err: ferr})
		return
	}

	mail := models.NewMail(ev.Event, opened.Content)
	mails, err := sess.storeLive(folder, mail)
	if err != nil {
		return
	}

	sess.notify(ctx, Signal{Kind: SignalNewMail, Folder: folder, Mail: &mail, Mails: mails})
}
