package mailbox

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealTo(t *testing.T, from, to *user, subject string) *models.Envelope {
	t.Helper()
	env, err := cryptox.SealEnvelope(models.MailContent{Subject: subject}, from.acc.Address, to.acc.Address, from.keys.PublicKey, to.keys.PublicKey)
	require.NoError(t, err)
	return env
}

func TestSend_NewThread(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	receipt, err := alice.sender.Send(ctx, alice.sess, sealTo(t, alice, bob, "hi"), "")
	require.NoError(t, err)

	assert.Equal(t, cryptox.ThreadID(receipt.ThreadHash), receipt.ThreadID)
	assert.NotEmpty(t, receipt.TransactionHash)
	assert.Equal(t, int64(101), receipt.BlockNumber)
	assert.Equal(t, []SignalKind{SignalComposeClosed}, alice.rec.kinds())

	manifest, err := w.store.GetThread(ctx, receipt.ThreadHash)
	require.NoError(t, err)
	require.Len(t, manifest.Links, 1)
	assert.Equal(t, receipt.MailHash, manifest.Links[0].Multihash)

	ev, err := bob.client.GetThread(ctx, receipt.ThreadID, 0)
	require.NoError(t, err)
	assert.Equal(t, receipt.TransactionHash, ev.TransactionHash)
	assert.Equal(t, alice.acc.Address, ev.Args.FromAddress)
	assert.Equal(t, bob.acc.Address, ev.Args.ToAddress)
}

func TestSend_ThreadIDIsDeterministic(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	env := sealTo(t, alice, bob, "same")
	r1, err := alice.sender.Send(ctx, alice.sess, env, "")
	require.NoError(t, err)
	r2, err := alice.sender.Send(ctx, alice.sess, env, "")
	require.NoError(t, err)

	assert.Equal(t, r1.ThreadHash, r2.ThreadHash)
	assert.Equal(t, r1.ThreadID, r2.ThreadID)
	assert.NotEqual(t, r1.TransactionHash, r2.TransactionHash)
}

func TestSend_ReplyWithoutActiveThread(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	_, err := alice.sender.Send(context.Background(), alice.sess, sealTo(t, alice, bob, "re"), "0xthread")
	require.ErrorIs(t, err, common.ErrNoActiveThread)
	assert.Zero(t, alice.store.writes, "nothing is uploaded")
	assert.Zero(t, alice.ledger.sends)
}

func TestSend_ReplyToOtherThreadThanActive(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")
	first := w.deliver(t, bob, alice, 101, "first", "")
	second := w.deliver(t, bob, alice, 102, "second", "")

	_, err := alice.thread.ResolveThread(ctx, alice.sess, first.Args.ThreadID, 101)
	require.NoError(t, err)
	writes := alice.store.writes

	_, err = alice.sender.Send(ctx, alice.sess, sealTo(t, alice, bob, "re"), second.Args.ThreadID)
	require.ErrorIs(t, err, common.ErrNoActiveThread)
	assert.Equal(t, writes, alice.store.writes, "nothing is uploaded")
	assert.Zero(t, alice.ledger.sends)
	assert.Equal(t, first.Args.ThreadHash, alice.sess.Thread().ThreadHash)
}

func TestSend_ReplyAppendsToManifest(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")
	ev := w.deliver(t, bob, alice, 101, "hello", "")

	_, err := alice.thread.ResolveThread(ctx, alice.sess, ev.Args.ThreadID, 101)
	require.NoError(t, err)

	r1, err := alice.sender.Send(ctx, alice.sess, sealTo(t, alice, bob, "re 1"), ev.Args.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, ev.Args.ThreadID, r1.ThreadID)
	assert.NotEqual(t, ev.Args.ThreadHash, r1.ThreadHash)
	assert.Equal(t, r1.ThreadHash, alice.sess.Thread().ThreadHash, "active thread follows the new manifest")

	r2, err := alice.sender.Send(ctx, alice.sess, sealTo(t, alice, bob, "re 2"), ev.Args.ThreadID)
	require.NoError(t, err)

	manifest, err := w.store.GetThread(ctx, r2.ThreadHash)
	require.NoError(t, err)
	require.Len(t, manifest.Links, 3)
	assert.Equal(t, ev.Args.MailHash, manifest.Links[0].Multihash)
	assert.Equal(t, r1.MailHash, manifest.Links[1].Multihash)
	assert.Equal(t, r2.MailHash, manifest.Links[2].Multihash)

	assert.NotContains(t, alice.rec.kinds(), SignalComposeClosed)
}

func TestSend_UploadFailureSkipsLedger(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")
	alice.store.failWrite = errBoom

	_, err := alice.sender.Send(context.Background(), alice.sess, sealTo(t, alice, bob, "x"), "")
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, alice.ledger.sends)
}

func TestSend_LedgerFailureLeavesContent(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")
	alice.ledger.sendErr = common.ErrUnavailable

	before := w.store.Len()
	_, err := alice.sender.Send(context.Background(), alice.sess, sealTo(t, alice, bob, "x"), "")
	require.ErrorIs(t, err, common.ErrUnavailable)

	assert.Equal(t, before+2, w.store.Len(), "mail and manifest stay uploaded")
	assert.Equal(t, int64(100), w.chain.LatestBlock())
}

func TestCompose_ResolvesRecipient(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	receipt, err := alice.sender.Compose(ctx, alice.sess, "bob@x", models.MailContent{Subject: "s", Body: "b"}, "")
	require.NoError(t, err)

	raw, err := w.store.GetFileContent(ctx, receipt.MailHash)
	require.NoError(t, err)
	env, err := models.ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, bob.acc.Address, env.ToAddress)
	assert.Equal(t, alice.acc.Address, env.FromAddress)

	forBob, err := cryptox.DecryptMail(bob.keys, env.ReceiverData)
	require.NoError(t, err)
	assert.Equal(t, "s", forBob.Subject)
	assert.Equal(t, "alice@x", forBob.From)
	assert.Equal(t, "bob@x", forBob.To)
	assert.False(t, forBob.Time.IsZero())

	forAlice, err := cryptox.DecryptMail(alice.keys, env.SenderData)
	require.NoError(t, err)
	assert.Equal(t, forBob, forAlice)

	_, err = cryptox.DecryptMail(alice.keys, env.ReceiverData)
	require.ErrorIs(t, err, common.ErrDecrypt)
}

func TestCompose_UnknownRecipient(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")

	_, err := alice.sender.Compose(context.Background(), alice.sess, "nobody@x", models.MailContent{}, "")
	require.ErrorIs(t, err, common.ErrAccountNotFound)
	assert.Zero(t, alice.store.writes)
}
