package mailbox

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/logging"
)

// PageResult describes one FetchPage call. Mails holds only the decrypted
// mails of the fetched window, newest first.
type PageResult struct {
	Mails     []models.Mail
	FromBlock int64
	Exhausted bool
}

// Synchronizer pages a folder backwards from the latest block to the
// account's starting block.
type Synchronizer struct {
	ledger  ledger.Gateway
	content contentstore.Gateway
	logger  logging.Logger
}

// NewSynchronizer builds a Synchronizer reading events from l and content
// from c.
func NewSynchronizer(l ledger.Gateway, c contentstore.Gateway, logger logging.Logger) *Synchronizer {
	return &Synchronizer{ledger: l, content: c, logger: logger.With("module", "synchronizer")}
}

// FetchPage loads the next older window of folder into the session.
//
// Once the folder has been paged down to the starting block it emits
// SignalNoMoreMail and returns an exhausted result without touching the
// ledger. Only one fetch per folder runs at a time; a concurrent call gets
// common.ErrFetchInProgress. Failures are returned as *FolderError and
// leave the folder state as it was.
func (s *Synchronizer) FetchPage(ctx context.Context, sess *Session, folder models.Folder) (PageResult, error) {
	if _, err := models.ParseFolder(folder.String()); err != nil {
		return PageResult{}, &FolderError{Folder: folder, Err: err}
	}
	release, err := sess.acquire()
	if err != nil {
		return PageResult{}, err
	}
	defer release()

	flag := sess.inflight[folder]
	if !flag.CompareAndSwap(false, true) {
		return PageResult{}, common.ErrFetchInProgress
	}
	defer flag.Store(false)

	state := sess.Mailbox(folder)
	startingBlock := sess.StartingBlock()

	if state.Exhausted(startingBlock) {
		sess.notify(ctx, Signal{Kind: SignalNoMoreMail, Folder: folder})
		return PageResult{Exhausted: true, FromBlock: *state.FetchedFromBlock}, nil
	}

	sess.setStatus(folder, StatusLoading)
	sess.notify(ctx, Signal{Kind: SignalMailboxRequest, Folder: folder})

	events, fromBlock, err := s.ledger.GetMails(ctx, folder, state.FetchedFromBlock, state.BatchSize, startingBlock)
	if err != nil {
		return PageResult{}, s.fail(ctx, sess, folder, fmt.Errorf("get mails: %w", err))
	}

	hashes := make([]string, 0, len(events))
	for _, ev := range events {
		hashes = append(hashes, ev.Args.MailHash)
	}

	pick := func(env *models.Envelope) string { return env.CiphertextFor(folder) }
	opened, err := openAll(ctx, s.content, sess.Keys(), hashes, pick)
	if err != nil {
		return PageResult{}, s.fail(ctx, sess, folder, err)
	}

	page := make([]models.Mail, 0, len(events))
	for i, ev := range events {
		page = append(page, models.NewMail(ev, opened[i].Content))
	}

	mails, err := sess.storePage(folder, page, fromBlock)
	if err != nil {
		return PageResult{}, err
	}

	s.logger.Debug(ctx, "page fetched", "folder", folder, "from_block", fromBlock, "events", len(events))
	from := fromBlock
	sess.notify(ctx, Signal{Kind: SignalMailboxSuccess, Folder: folder, Mails: mails, FromBlock: &from})

	return PageResult{Mails: page, FromBlock: fromBlock}, nil
}

func (s *Synchronizer) fail(ctx context.Context, sess *Session, folder models.Folder, err error) error {
	ferr := &FolderError{Folder: folder, Err: err}
	s.logger.Error(ctx, "mailbox fetch failed", "folder", folder, "error", err)
	sess.setStatus(folder, StatusFailed)
	sess.notify(ctx, Signal{Kind: SignalMailboxError, Folder: folder, Err: ferr})
	return ferr
}
