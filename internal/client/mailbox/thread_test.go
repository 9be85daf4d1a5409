package mailbox

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThread_ManifestOrder(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	_, err := alice.sender.Compose(ctx, alice.sess, "bob@x", models.MailContent{Subject: "one"}, "")
	require.NoError(t, err)

	_, err = bob.sync.FetchPage(ctx, bob.sess, models.FolderInbox)
	require.NoError(t, err)

	inbox := bob.sess.Mailbox(models.FolderInbox)
	require.Len(t, inbox.Mails, 1)
	first := inbox.Mails[0]

	mails, err := bob.thread.ResolveThread(ctx, bob.sess, first.ThreadID, first.BlockNumber)
	require.NoError(t, err)
	require.Len(t, mails, 1)

	_, err = bob.sender.Compose(ctx, bob.sess, "alice@x", models.MailContent{Subject: "two"}, first.ThreadID)
	require.NoError(t, err)

	mails, err = alice.thread.ResolveThread(ctx, alice.sess, first.ThreadID, first.BlockNumber)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, subjects(mails))

	th := alice.sess.Thread()
	assert.Equal(t, first.ThreadID, th.ThreadID)
	assert.Len(t, th.Thread, 2)
	for _, m := range mails {
		assert.NotEmpty(t, m.Hash)
		assert.Equal(t, m.Hash, m.MailHash)
		assert.Equal(t, first.ThreadID, m.ThreadID)
	}
	assert.Equal(t, alice.acc.Address, mails[0].FromAddress)
	assert.Equal(t, bob.acc.Address, mails[1].FromAddress)
}

func TestResolveThread_SignalsAndState(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")
	ev := w.deliver(t, bob, alice, 101, "hello", "")

	alice.rec.reset()
	mails, err := alice.thread.ResolveThread(ctx, alice.sess, ev.Args.ThreadID, 101)
	require.NoError(t, err)
	require.Len(t, mails, 1)
	assert.Equal(t, "hello", mails[0].Subject)

	assert.Equal(t, []SignalKind{SignalThreadRequest, SignalThreadSuccess}, alice.rec.kinds())
	last := alice.rec.last()
	require.NotNil(t, last.Thread)
	assert.Equal(t, ev.Args.ThreadHash, last.Thread.ThreadHash)
	assert.Equal(t, ev.Args.ThreadHash, alice.sess.Thread().ThreadHash)
}

func TestResolveThread_NotFound(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")

	_, err := alice.thread.ResolveThread(context.Background(), alice.sess, "0xmissing", 0)
	require.ErrorIs(t, err, common.ErrThreadNotFound)

	var terr *ThreadError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "0xmissing", terr.ThreadID)
	assert.Equal(t, SignalThreadError, alice.rec.last().Kind)
	assert.Empty(t, alice.sess.Thread().ThreadID)
}

func TestResolveThread_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	_, err := alice.sender.Compose(ctx, alice.sess, "bob@x", models.MailContent{Subject: "one"}, "")
	require.NoError(t, err)
	_, err = bob.sync.FetchPage(ctx, bob.sess, models.FolderInbox)
	require.NoError(t, err)
	first := bob.sess.Mailbox(models.FolderInbox).Mails[0]

	_, err = bob.thread.ResolveThread(ctx, bob.sess, first.ThreadID, first.BlockNumber)
	require.NoError(t, err)
	_, err = bob.sender.Compose(ctx, bob.sess, "alice@x", models.MailContent{Subject: "two"}, first.ThreadID)
	require.NoError(t, err)

	alice.store.failGet[first.MailHash] = true
	alice.rec.reset()

	mails, err := alice.thread.ResolveThread(ctx, alice.sess, first.ThreadID, first.BlockNumber)
	require.ErrorIs(t, err, errBoom)
	assert.Nil(t, mails)
	assert.Equal(t, []SignalKind{SignalThreadRequest, SignalThreadError}, alice.rec.kinds())
}
