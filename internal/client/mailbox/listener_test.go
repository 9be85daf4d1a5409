package mailbox

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_PrependsNewMail(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	w.deliver(t, bob, alice, 105, "old", "")
	_, err := alice.sync.FetchPage(ctx, alice.sess, models.FolderInbox)
	require.NoError(t, err)

	sub, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	alice.rec.reset()

	_, err = bob.sender.Compose(ctx, bob.sess, "alice@x", models.MailContent{Subject: "new"}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"new", "old"}, subjects(alice.sess.Mailbox(models.FolderInbox).Mails))
	assert.Equal(t, []SignalKind{SignalNewMail}, alice.rec.kinds())

	last := alice.rec.last()
	assert.Equal(t, models.FolderInbox, last.Folder)
	require.NotNil(t, last.Mail)
	assert.Equal(t, "new", last.Mail.Subject)
	assert.Len(t, last.Mails, 2)
}

func TestSubscribe_NewMailWinsDedup(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	_, err := alice.sender.Compose(ctx, alice.sess, "bob@x", models.MailContent{Subject: "question"}, "")
	require.NoError(t, err)
	_, err = alice.sync.FetchPage(ctx, alice.sess, models.FolderOutbox)
	require.NoError(t, err)

	_, err = bob.sync.FetchPage(ctx, bob.sess, models.FolderInbox)
	require.NoError(t, err)
	first := bob.sess.Mailbox(models.FolderInbox).Mails[0]
	_, err = bob.thread.ResolveThread(ctx, bob.sess, first.ThreadID, first.BlockNumber)
	require.NoError(t, err)

	sub, err := bob.listen.Subscribe(ctx, bob.sess)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = bob.sender.Compose(ctx, bob.sess, "alice@x", models.MailContent{Subject: "answer"}, first.ThreadID)
	require.NoError(t, err)

	inbox := bob.sess.Mailbox(models.FolderInbox)
	assert.Equal(t, []string{"question"}, subjects(inbox.Mails))

	outbox := bob.sess.Mailbox(models.FolderOutbox)
	require.Len(t, outbox.Mails, 1)
	assert.Equal(t, "answer", outbox.Mails[0].Subject)

	// a second live mail of the same thread replaces the first
	_, err = bob.sender.Compose(ctx, bob.sess, "alice@x", models.MailContent{Subject: "follow-up"}, first.ThreadID)
	require.NoError(t, err)
	outbox = bob.sess.Mailbox(models.FolderOutbox)
	assert.Equal(t, []string{"follow-up"}, subjects(outbox.Mails))
}

func TestSubscribe_SelfMailLandsInBothFolders(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")

	sub, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = alice.sender.Compose(ctx, alice.sess, "alice@x", models.MailContent{Subject: "note"}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"note"}, subjects(alice.sess.Mailbox(models.FolderInbox).Mails))
	assert.Equal(t, []string{"note"}, subjects(alice.sess.Mailbox(models.FolderOutbox).Mails))
}

func TestSubscribe_FetchFailureSignalsError(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	sub, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	env := sealTo(t, bob, alice, "lost")
	res, err := w.store.UploadMail(ctx, env)
	require.NoError(t, err)
	link, err := res.Link()
	require.NoError(t, err)
	alice.store.failGet[link.Multihash] = true

	_, err = bob.sender.Send(ctx, bob.sess, env, "")
	require.NoError(t, err)

	assert.Empty(t, alice.sess.Mailbox(models.FolderInbox).Mails)
	last := alice.rec.last()
	assert.Equal(t, SignalMailboxError, last.Kind)
	assert.Equal(t, models.FolderInbox, last.Folder)
	assert.ErrorIs(t, last.Err, errBoom)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	sub, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	require.Equal(t, 1, w.chain.Listeners())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Zero(t, w.chain.Listeners())

	_, err = bob.sender.Compose(ctx, bob.sess, "alice@x", models.MailContent{Subject: "missed"}, "")
	require.NoError(t, err)
	assert.Empty(t, alice.sess.Mailbox(models.FolderInbox).Mails)
}

func TestSubscribe_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")

	first, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	second, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)

	assert.Equal(t, 1, w.chain.Listeners())
	assert.Same(t, second, alice.sess.Subscription())
	first.Unsubscribe()
	assert.Equal(t, 1, w.chain.Listeners())
}

func TestSubscribe_ClosedSession(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	alice.sess.Close()

	_, err := alice.listen.Subscribe(context.Background(), alice.sess)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	assert.Zero(t, w.chain.Listeners())
}
