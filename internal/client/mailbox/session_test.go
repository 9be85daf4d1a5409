package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Defaults(t *testing.T) {
	keys, err := cryptox.GenerateKeypair()
	require.NoError(t, err)

	s := NewSession(keys, ledger.Account{Address: keys.Address(), MailAddress: "a@x", StartingBlock: 7}, 0, nil)

	assert.Equal(t, keys.Address(), s.Account())
	assert.Equal(t, "a@x", s.MailAddress())
	assert.Equal(t, int64(7), s.StartingBlock())
	assert.Equal(t, models.FolderInbox, s.Folder())
	for _, f := range models.Folders {
		mb := s.Mailbox(f)
		assert.Equal(t, DefaultBatchSize, mb.BatchSize)
		assert.Nil(t, mb.FetchedFromBlock)
		assert.Equal(t, StatusIdle, mb.Status)
	}

	require.NoError(t, s.SetFolder(context.Background(), models.FolderOutbox))
}

func TestSetFolder(t *testing.T) {
	w := newWorld(100)
	alice := w.user(t, "alice@x")

	require.NoError(t, alice.sess.SetFolder(context.Background(), models.FolderOutbox))
	assert.Equal(t, models.FolderOutbox, alice.sess.Folder())
	assert.Equal(t, Signal{Kind: SignalFolderChanged, Folder: models.FolderOutbox}, alice.rec.last())

	err := alice.sess.SetFolder(context.Background(), models.Folder("trash"))
	require.ErrorIs(t, err, common.ErrUnknownFolder)
	assert.Equal(t, models.FolderOutbox, alice.sess.Folder())
}

func TestClose_TearsDownSession(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")

	w.deliver(t, bob, alice, 101, "hi", "")
	_, err := alice.sync.FetchPage(ctx, alice.sess, models.FolderInbox)
	require.NoError(t, err)
	_, err = alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	require.Equal(t, 1, w.chain.Listeners())

	alice.sess.Close()
	alice.sess.Close()

	assert.True(t, alice.sess.Closed())
	assert.Zero(t, w.chain.Listeners())
	assert.Nil(t, alice.sess.Subscription())
	assert.Empty(t, alice.sess.Mailbox(models.FolderInbox).Mails)
	assert.Equal(t, [32]byte{}, *alice.keys.PrivateKey)

	err = alice.sess.SetFolder(ctx, models.FolderOutbox)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)

	_, err = alice.sender.Send(ctx, alice.sess, &models.Envelope{}, "")
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
}

func TestStopListening(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")

	assert.False(t, alice.sess.StopListening())

	_, err := alice.listen.Subscribe(ctx, alice.sess)
	require.NoError(t, err)
	require.Equal(t, 1, w.chain.Listeners())

	assert.True(t, alice.sess.StopListening())
	assert.Nil(t, alice.sess.Subscription())
	assert.Equal(t, 0, w.chain.Listeners())
}

// parkingStore holds every content read until release is closed.
type parkingStore struct {
	contentstore.Gateway
	entered chan struct{}
	release chan struct{}
}

func (p *parkingStore) GetFileContent(ctx context.Context, hash string) ([]byte, error) {
	p.entered <- struct{}{}
	<-p.release
	return p.Gateway.GetFileContent(ctx, hash)
}

func TestClose_WaitsForRunningFetch(t *testing.T) {
	ctx := context.Background()
	w := newWorld(100)
	alice := w.user(t, "alice@x")
	bob := w.user(t, "bob@x")
	w.deliver(t, bob, alice, 101, "hi", "")

	ps := &parkingStore{Gateway: w.store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	syncer := NewSynchronizer(alice.ledger, ps, discardLogger())

	fetched := make(chan error, 1)
	go func() {
		_, err := syncer.FetchPage(ctx, alice.sess, models.FolderInbox)
		fetched <- err
	}()
	<-ps.entered

	closed := make(chan struct{})
	go func() {
		alice.sess.Close()
		close(closed)
	}()

	require.Eventually(t, alice.sess.Closed, time.Second, 5*time.Millisecond)
	select {
	case <-closed:
		t.Fatal("Close returned while a fetch was still decrypting")
	case <-time.After(50 * time.Millisecond):
	}

	close(ps.release)
	require.ErrorIs(t, <-fetched, common.ErrNotLoggedIn, "the page is dropped, not half-decrypted")

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the fetch finished")
	}
	assert.Equal(t, [32]byte{}, *alice.keys.PrivateKey)
}
