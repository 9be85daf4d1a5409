package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/melonmail/internal/client/mailbox"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
)

const timeLayout = "2006-01-02 15:04"

// Open switches to folder and loads its first page unless it was loaded
// before, in which case the cached view is shown.
func (a *App) Open(ctx context.Context, folder string) error {
	f, err := models.ParseFolder(folder)
	if err != nil {
		return a.fail(ctx, "open", err)
	}
	if err := a.sess.SetFolder(ctx, f); err != nil {
		return a.fail(ctx, "open", err)
	}

	if a.sess.Mailbox(f).FetchedFromBlock != nil {
		a.printMailbox(f)
		return nil
	}
	return a.More(ctx)
}

// More loads the next older page of the current folder.
func (a *App) More(ctx context.Context) error {
	f := a.sess.Folder()
	rctx, cancel := a.requestCtx(ctx)
	defer cancel()

	res, err := a.sync.FetchPage(rctx, a.sess, f)
	if err != nil {
		if errors.Is(err, common.ErrFetchInProgress) {
			a.printf("Still loading %s\n", f)
			return nil
		}
		return err
	}
	if !res.Exhausted {
		a.printMailbox(f)
	}
	return nil
}

// Thread opens the conversation of the n-th mail (1-based) of the current
// folder and makes it the active thread for replies.
func (a *App) Thread(ctx context.Context, args []string) error {
	mails := a.sess.Mailbox(a.sess.Folder()).Mails
	if len(args) != 1 {
		a.printf("Usage: thread <n>\n")
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(mails) {
		a.printf("No mail number %s\n", args[0])
		return nil
	}

	rctx, cancel := a.requestCtx(ctx)
	defer cancel()

	thread, err := a.threads.ResolveThread(rctx, a.sess, mails[n-1].ThreadID, a.sess.StartingBlock())
	if err != nil {
		return err
	}

	for i, m := range thread {
		a.printf("--- %d/%d  %s  %s -> %s\n", i+1, len(thread), m.Time.Local().Format(timeLayout), m.From, m.To)
		a.printf("Subject: %s\n\n%s\n\n", m.Subject, m.Body)
	}
	return nil
}

// Reply answers the last mail of the active thread.
func (a *App) Reply(ctx context.Context) error {
	t := a.sess.Thread()
	if t.ThreadID == "" || len(t.Thread) == 0 {
		return a.fail(ctx, "reply", common.ErrNoActiveThread)
	}

	last := t.Thread[len(t.Thread)-1]
	to := last.From
	if cryptox.SameAddress(last.FromAddress, a.sess.Account()) {
		to = last.To
	}

	subject := last.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	body, err := getMultiline(a.reader, "Reply to "+to, a.out)
	if err != nil {
		return err
	}

	return a.compose(ctx, to, models.MailContent{Subject: subject, Body: body}, t.ThreadID)
}

// Send composes a mail that starts a new thread.
func (a *App) Send(ctx context.Context) error {
	to, err := getSimpleText(a.reader, "To", a.out)
	if err != nil {
		return err
	}
	subject, err := getSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}
	body, err := getMultiline(a.reader, "Body", a.out)
	if err != nil {
		return err
	}

	return a.compose(ctx, a.qualify(to), models.MailContent{Subject: subject, Body: body}, "")
}

func (a *App) compose(ctx context.Context, to string, content models.MailContent, threadID string) error {
	rctx, cancel := a.requestCtx(ctx)
	defer cancel()

	receipt, err := a.sender.Compose(rctx, a.sess, to, content, threadID)
	if err != nil {
		return a.fail(ctx, "send", err)
	}
	a.printf("Sent to %s in block %d (tx %s)\n", to, receipt.BlockNumber, receipt.TransactionHash)
	return nil
}

// Listen subscribes to new mail. Mail keeps arriving until Unlisten,
// logout or exit.
func (a *App) Listen(ctx context.Context) error {
	if _, err := a.listener.Subscribe(a.liveCtx, a.sess); err != nil {
		return a.fail(ctx, "listen", err)
	}
	a.printf("Listening for new mail\n")
	return nil
}

// Unlisten stops the live subscription, if any.
func (a *App) Unlisten(ctx context.Context) error {
	if !a.sess.StopListening() {
		a.printf("Not listening\n")
		return nil
	}
	a.printf("Stopped listening\n")
	return nil
}

func (a *App) printMailbox(f models.Folder) {
	mails := a.sess.Mailbox(f).Mails
	if len(mails) == 0 {
		a.printf("%s is empty\n", f)
		return
	}
	for i, m := range mails {
		peer := m.From
		if f == models.FolderOutbox {
			peer = m.To
		}
		a.printf("%3d. %s  %-28s %s\n", i+1, m.Time.Local().Format(timeLayout), peer, m.Subject)
	}
}

// Notify implements mailbox.Notifier. It is called from the live
// subscription goroutine as well as from the REPL.
func (a *App) Notify(ctx context.Context, s mailbox.Signal) {
	switch s.Kind {
	case mailbox.SignalNewMail:
		a.printf("\nNew mail in %s from %s: %s\n", s.Folder, s.Mail.From, s.Mail.Subject)
	case mailbox.SignalNoMoreMail:
		a.printf("No more mail in %s\n", s.Folder)
	case mailbox.SignalMailboxError, mailbox.SignalThreadError:
		a.printf("Error: %v\n", s.Err)
	case mailbox.SignalFolderChanged:
		a.logger.Debug(ctx, "folder changed", "folder", s.Folder)
	}
}
