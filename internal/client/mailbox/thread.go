package mailbox

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/logging"
)

// ThreadReconstructor turns a thread id into the ordered list of its mails.
type ThreadReconstructor struct {
	ledger  ledger.Gateway
	content contentstore.Gateway
	logger  logging.Logger
}

// NewThreadReconstructor builds a ThreadReconstructor over the two gateways.
func NewThreadReconstructor(l ledger.Gateway, c contentstore.Gateway, logger logging.Logger) *ThreadReconstructor {
	return &ThreadReconstructor{ledger: l, content: c, logger: logger.With("module", "thread")}
}

// ResolveThread finds the newest manifest of threadID recorded at or after
// afterBlock, opens every mail it links to and makes the result the
// session's active thread. Mails are in manifest order, oldest first.
func (r *ThreadReconstructor) ResolveThread(ctx context.Context, sess *Session, threadID string, afterBlock int64) ([]models.Mail, error) {
	release, err := sess.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	sess.notify(ctx, Signal{Kind: SignalThreadRequest})

	ev, err := r.ledger.GetThread(ctx, threadID, afterBlock)
	if err != nil {
		return nil, r.fail(ctx, sess, threadID, fmt.Errorf("get thread event: %w", err))
	}

	manifest, err := r.content.GetThread(ctx, ev.Args.ThreadHash)
	if err != nil {
		return nil, r.fail(ctx, sess, threadID, fmt.Errorf("get manifest: %w", err))
	}

	hashes := make([]string, 0, len(manifest.Links))
	for _, l := range manifest.Links {
		hashes = append(hashes, l.Multihash)
	}

	account := sess.Account()
	pick := func(env *models.Envelope) string { return env.CiphertextForAccount(account) }
	opened, err := openAll(ctx, r.content, sess.Keys(), hashes, pick)
	if err != nil {
		return nil, r.fail(ctx, sess, threadID, err)
	}

	mails := make([]models.Mail, 0, len(opened))
	for i, o := range opened {
		mails = append(mails, models.Mail{
			MailEventArgs: models.MailEventArgs{
				MailHash:    hashes[i],
				ThreadHash:  ev.Args.ThreadHash,
				ThreadID:    threadID,
				FromAddress: o.Envelope.FromAddress,
				ToAddress:   o.Envelope.ToAddress,
			},
			MailContent: o.Content,
			Hash:        hashes[i],
		})
	}

	state := ThreadState{Thread: mails, ThreadHash: ev.Args.ThreadHash, ThreadID: threadID}
	if err := sess.storeThread(state); err != nil {
		return nil, err
	}

	r.logger.Debug(ctx, "thread resolved", "thread_id", threadID, "mails", len(mails))
	sess.notify(ctx, Signal{Kind: SignalThreadSuccess, Mails: mails, Thread: &state})

	return mails, nil
}

func (r *ThreadReconstructor) fail(ctx context.Context, sess *Session, threadID string, err error) error {
	terr := &ThreadError{ThreadID: threadID, Err: err}
	r.logger.Error(ctx, "thread resolve failed", "thread_id", threadID, "error", err)
	sess.notify(ctx, Signal{Kind: SignalThreadError, Err: terr})
	return terr
}
