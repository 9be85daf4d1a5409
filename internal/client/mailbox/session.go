package mailbox

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"go.uber.org/atomic"
)

// DefaultBatchSize is the number of blocks covered by one page.
const DefaultBatchSize int64 = 50

// Session is the explicit context of one logged-in account. All mutable
// state is guarded by mu; network I/O never happens while it is held.
// Pipeline calls hold ops for reading while they use the keypair; Close
// takes it for writing before the private key is wiped.
type Session struct {
	keys          *cryptox.Keypair
	account       string
	mailAddress   string
	startingBlock int64
	notifier      Notifier

	inflight map[models.Folder]*atomic.Bool
	ops      sync.RWMutex

	mu        sync.Mutex
	mailboxes map[models.Folder]*MailboxState
	thread    ThreadState
	folder    models.Folder
	sub       *Subscription
	closed    bool
}

// NewSession binds keys to the account acc. A nil notifier discards
// signals; a non-positive batchSize selects DefaultBatchSize.
func NewSession(keys *cryptox.Keypair, acc ledger.Account, batchSize int64, n Notifier) *Session {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if n == nil {
		n = nopNotifier{}
	}

	s := &Session{
		keys:          keys,
		account:       acc.Address,
		mailAddress:   acc.MailAddress,
		startingBlock: acc.StartingBlock,
		notifier:      n,
		inflight:      make(map[models.Folder]*atomic.Bool, len(models.Folders)),
		mailboxes:     make(map[models.Folder]*MailboxState, len(models.Folders)),
		folder:        models.FolderInbox,
	}
	for _, f := range models.Folders {
		s.inflight[f] = atomic.NewBool(false)
		s.mailboxes[f] = &MailboxState{BatchSize: batchSize}
	}
	return s
}

// Account returns the ledger address of the session owner.
func (s *Session) Account() string { return s.account }

// MailAddress returns the registered name@domain of the session owner.
func (s *Session) MailAddress() string { return s.mailAddress }

// StartingBlock returns the latest block at registration. Paging stops there.
func (s *Session) StartingBlock() int64 { return s.startingBlock }

// Keys returns the session keypair. It is wiped by Close, so callers outside
// the pipeline must not keep it across a logout.
func (s *Session) Keys() *cryptox.Keypair { return s.keys }

func (s *Session) notify(ctx context.Context, sig Signal) {
	s.notifier.Notify(ctx, sig)
}

// acquire registers a pipeline call that uses the keypair. The returned
// release must be called once the call is done. Calls must not nest.
func (s *Session) acquire() (func(), error) {
	s.ops.RLock()
	if err := s.checkOpen(); err != nil {
		s.ops.RUnlock()
		return nil, err
	}
	return s.ops.RUnlock, nil
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrNotLoggedIn
	}
	return nil
}

// Mailbox returns a copy of the folder state.
func (s *Session) Mailbox(folder models.Folder) MailboxState {
	s.mu.Lock()
	defer s.mu.Unlock()
	mb, ok := s.mailboxes[folder]
	if !ok {
		return MailboxState{}
	}
	return mb.clone()
}

// Thread returns a copy of the active thread.
func (s *Session) Thread() ThreadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread.clone()
}

// Folder returns the folder currently shown.
func (s *Session) Folder() models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folder
}

// SetFolder switches the current folder and emits SignalFolderChanged.
func (s *Session) SetFolder(ctx context.Context, folder models.Folder) error {
	if _, err := models.ParseFolder(folder.String()); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return common.ErrNotLoggedIn
	}
	s.folder = folder
	s.mu.Unlock()

	s.notify(ctx, Signal{Kind: SignalFolderChanged, Folder: folder})
	return nil
}

func (s *Session) setStatus(folder models.Folder, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mailboxes[folder].Status = st
}

// storePage appends page behind the folder's mails and records fromBlock.
func (s *Session) storePage(folder models.Folder, page []models.Mail, fromBlock int64) ([]models.Mail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrNotLoggedIn
	}

	mb := s.mailboxes[folder]
	mb.Mails = appendPage(mb.Mails, page)
	if mb.FetchedFromBlock == nil || fromBlock < *mb.FetchedFromBlock {
		b := fromBlock
		mb.FetchedFromBlock = &b
	}
	mb.Status = StatusLoaded
	return append([]models.Mail(nil), mb.Mails...), nil
}

// storeLive puts a live mail in front of the folder's mails.
func (s *Session) storeLive(folder models.Folder, mail models.Mail) ([]models.Mail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrNotLoggedIn
	}

	mb := s.mailboxes[folder]
	mb.Mails = prependMail(mb.Mails, mail)
	return append([]models.Mail(nil), mb.Mails...), nil
}

func (s *Session) storeThread(t ThreadState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrNotLoggedIn
	}
	s.thread = t.clone()
	return nil
}

// advanceThread moves the active thread to a new manifest after a reply.
func (s *Session) advanceThread(threadID, threadHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thread.ThreadID == threadID {
		s.thread.ThreadHash = threadHash
	}
}

// setSubscription installs sub and returns the one it replaced.
func (s *Session) setSubscription(sub *Subscription) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrNotLoggedIn
	}
	old := s.sub
	s.sub = sub
	return old, nil
}

// Subscription returns the live subscription, if any.
func (s *Session) Subscription() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// StopListening tears down the live subscription and reports whether there
// was one.
func (s *Session) StopListening() bool {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	sub.Unsubscribe()
	return sub != nil
}

// Close ends the session: the live subscription is torn down, the private
// key is wiped and all mailbox state is dropped. It waits for running
// pipeline calls to finish before wiping the key and must not be called
// from a Notifier. It is safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys.Wipe()
	for f, mb := range s.mailboxes {
		s.mailboxes[f] = &MailboxState{BatchSize: mb.BatchSize}
	}
	s.thread = ThreadState{}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
