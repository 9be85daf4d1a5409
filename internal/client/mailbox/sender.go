package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/logging"
)

// SendReceipt identifies a mail recorded on the ledger.
type SendReceipt struct {
	MailHash        string
	ThreadHash      string
	ThreadID        string
	TransactionHash string
	BlockNumber     int64
}

// Sender stores mails in the content store and records them on the ledger.
type Sender struct {
	ledger  ledger.Gateway
	content contentstore.Gateway
	logger  logging.Logger
	now     func() time.Time
}

// NewSender builds a Sender over the two gateways.
func NewSender(l ledger.Gateway, c contentstore.Gateway, logger logging.Logger) *Sender {
	return &Sender{ledger: l, content: c, logger: logger.With("module", "sender"), now: time.Now}
}

// Send uploads env and records it on the ledger. A non-empty threadID makes
// it a reply: the mail is appended to the session's active thread manifest,
// which must exist and carry the same id. Otherwise a new thread is
// started and its id derived from the manifest hash.
//
// The ledger is written only after every content write succeeded. A ledger
// failure leaves the uploaded content in place.
func (s *Sender) Send(ctx context.Context, sess *Session, env *models.Envelope, threadID string) (SendReceipt, error) {
	release, err := sess.acquire()
	if err != nil {
		return SendReceipt{}, err
	}
	defer release()

	return s.send(ctx, sess, env, threadID)
}

func (s *Sender) send(ctx context.Context, sess *Session, env *models.Envelope, threadID string) (SendReceipt, error) {
	var activeHash string
	if threadID != "" {
		active := sess.Thread()
		if active.ThreadHash == "" || active.ThreadID != threadID {
			return SendReceipt{}, common.ErrNoActiveThread
		}
		activeHash = active.ThreadHash
	}

	res, err := s.content.UploadMail(ctx, env)
	if err != nil {
		return SendReceipt{}, s.fail(ctx, fmt.Errorf("upload mail: %w", err))
	}
	link, err := res.Link()
	if err != nil {
		return SendReceipt{}, s.fail(ctx, fmt.Errorf("upload mail: %w", err))
	}

	var manifest models.Link
	if threadID != "" {
		manifest, err = s.content.ReplyToThread(ctx, link, activeHash)
		if err != nil {
			return SendReceipt{}, s.fail(ctx, fmt.Errorf("reply to thread: %w", err))
		}
	} else {
		manifest, err = s.content.NewThread(ctx, link)
		if err != nil {
			return SendReceipt{}, s.fail(ctx, fmt.Errorf("new thread: %w", err))
		}
		threadID = cryptox.ThreadID(manifest.Multihash)
		sess.notify(ctx, Signal{Kind: SignalComposeClosed})
	}

	ev, err := s.ledger.SendMail(ctx, env.ToAddress, link.Multihash, manifest.Multihash, threadID)
	if err != nil {
		return SendReceipt{}, s.fail(ctx, fmt.Errorf("send mail: %w", err))
	}

	sess.advanceThread(threadID, manifest.Multihash)
	s.logger.Info(ctx, "mail sent", "thread_id", threadID, "tx", ev.TransactionHash)

	return SendReceipt{
		MailHash:        link.Multihash,
		ThreadHash:      manifest.Multihash,
		ThreadID:        threadID,
		TransactionHash: ev.TransactionHash,
		BlockNumber:     ev.BlockNumber,
	}, nil
}

// Compose resolves the recipient by mail address, seals content for both
// parties and sends it.
func (s *Sender) Compose(ctx context.Context, sess *Session, toMailAddress string, content models.MailContent, threadID string) (SendReceipt, error) {
	release, err := sess.acquire()
	if err != nil {
		return SendReceipt{}, err
	}
	defer release()

	to, err := s.ledger.ResolveAddress(ctx, toMailAddress)
	if err != nil {
		return SendReceipt{}, s.fail(ctx, fmt.Errorf("resolve %s: %w", toMailAddress, err))
	}
	receiverKey, err := cryptox.DecodeKey(to.PublicKey)
	if err != nil {
		return SendReceipt{}, s.fail(ctx, fmt.Errorf("recipient key: %w", err))
	}

	content.From = sess.MailAddress()
	content.To = toMailAddress
	if content.Time.IsZero() {
		content.Time = s.now().UTC()
	}

	env, err := cryptox.SealEnvelope(content, sess.Account(), to.Address, sess.Keys().PublicKey, receiverKey)
	if err != nil {
		return SendReceipt{}, s.fail(ctx, err)
	}

	return s.send(ctx, sess, env, threadID)
}

func (s *Sender) fail(ctx context.Context, err error) error {
	s.logger.Error(ctx, "send failed", "error", err)
	return err
}
