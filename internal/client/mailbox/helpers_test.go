package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// recorder collects every signal a session emits.
type recorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *recorder) Notify(_ context.Context, s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recorder) kinds() []SignalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SignalKind, 0, len(r.signals))
	for _, s := range r.signals {
		out = append(out, s.Kind)
	}
	return out
}

func (r *recorder) last() Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signals[len(r.signals)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = nil
}

// countingLedger counts gateway calls and can inject failures.
type countingLedger struct {
	ledger.Gateway

	mu          sync.Mutex
	getMails    int
	getMailsErr error
	sendErr     error
	sends       int
	lastWindow  struct {
		to    *int64
		batch int64
		start int64
	}
}

func (c *countingLedger) GetMails(ctx context.Context, folder models.Folder, to *int64, batch, start int64) ([]models.MailEvent, int64, error) {
	c.mu.Lock()
	c.getMails++
	c.lastWindow.to, c.lastWindow.batch, c.lastWindow.start = to, batch, start
	err := c.getMailsErr
	c.mu.Unlock()
	if err != nil {
		return nil, 0, err
	}
	return c.Gateway.GetMails(ctx, folder, to, batch, start)
}

func (c *countingLedger) SendMail(ctx context.Context, to, mailHash, threadHash, threadID string) (models.MailEvent, error) {
	c.mu.Lock()
	c.sends++
	err := c.sendErr
	c.mu.Unlock()
	if err != nil {
		return models.MailEvent{}, err
	}
	return c.Gateway.SendMail(ctx, to, mailHash, threadHash, threadID)
}

func (c *countingLedger) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getMails
}

// flakyStore fails reads of selected hashes and can fail writes.
type flakyStore struct {
	contentstore.Gateway

	mu        sync.Mutex
	failGet   map[string]bool
	failWrite error
	writes    int
}

func (f *flakyStore) GetFileContent(ctx context.Context, hash string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGet[hash]
	f.mu.Unlock()
	if fail {
		return nil, errBoom
	}
	return f.Gateway.GetFileContent(ctx, hash)
}

func (f *flakyStore) UploadMail(ctx context.Context, env *models.Envelope) (models.UploadResult, error) {
	f.mu.Lock()
	f.writes++
	err := f.failWrite
	f.mu.Unlock()
	if err != nil {
		return models.UploadResult{}, err
	}
	return f.Gateway.UploadMail(ctx, env)
}

func (f *flakyStore) NewThread(ctx context.Context, link models.Link) (models.Link, error) {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.Gateway.NewThread(ctx, link)
}

func (f *flakyStore) ReplyToThread(ctx context.Context, link models.Link, threadHash string) (models.Link, error) {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.Gateway.ReplyToThread(ctx, link, threadHash)
}

// world is a shared ledger and content store with any number of users.
type world struct {
	chain *ledger.Memory
	store *contentstore.MemoryStore
}

type user struct {
	keys   *cryptox.Keypair
	client *ledger.MemoryClient
	acc    ledger.Account
	ledger *countingLedger
	store  *flakyStore
	sess   *Session
	rec    *recorder

	sync   *Synchronizer
	thread *ThreadReconstructor
	sender *Sender
	listen *Listener
}

func newWorld(latest int64) *world {
	return &world{chain: ledger.NewMemory(latest), store: contentstore.NewMemoryStore()}
}

func (w *world) user(t *testing.T, mail string) *user {
	t.Helper()
	ctx := context.Background()

	keys, err := cryptox.GenerateKeypair()
	require.NoError(t, err)

	c := w.chain.Connect()
	_, err = c.Register(ctx, mail, keys)
	require.NoError(t, err)
	acc, err := c.Login(ctx, keys)
	require.NoError(t, err)

	u := &user{
		keys:   keys,
		client: c,
		acc:    acc,
		ledger: &countingLedger{Gateway: c},
		store:  &flakyStore{Gateway: w.store, failGet: map[string]bool{}},
		rec:    &recorder{},
	}
	u.sess = NewSession(keys, acc, 50, u.rec)

	logger := logging.Discard()
	u.sync = NewSynchronizer(u.ledger, u.store, logger)
	u.thread = NewThreadReconstructor(u.ledger, u.store, logger)
	u.sender = NewSender(u.ledger, u.store, logger)
	u.sender.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	u.listen = NewListener(u.ledger, u.store, logger)
	return u
}

// deliver stores a sealed mail from -> to and mines its event at block.
// An empty threadID starts a new thread.
func (w *world) deliver(t *testing.T, from, to *user, block int64, subject, threadID string) models.MailEvent {
	t.Helper()
	ctx := context.Background()

	content := models.MailContent{Subject: subject, Body: "body of " + subject, From: from.acc.MailAddress, To: to.acc.MailAddress}
	env, err := cryptox.SealEnvelope(content, from.acc.Address, to.acc.Address, from.keys.PublicKey, to.keys.PublicKey)
	require.NoError(t, err)

	res, err := w.store.UploadMail(ctx, env)
	require.NoError(t, err)
	link, err := res.Link()
	require.NoError(t, err)

	manifest, err := w.store.NewThread(ctx, link)
	require.NoError(t, err)
	if threadID == "" {
		threadID = cryptox.ThreadID(manifest.Multihash)
	}

	ev := models.MailEvent{
		TransactionHash: "0xtx-" + subject,
		BlockNumber:     block,
		Args: models.MailEventArgs{
			MailHash:    link.Multihash,
			ThreadHash:  manifest.Multihash,
			ThreadID:    threadID,
			FromAddress: from.acc.Address,
			ToAddress:   to.acc.Address,
		},
	}
	w.chain.Append(ev)
	return ev
}

func subjects(mails []models.Mail) []string {
	out := make([]string, 0, len(mails))
	for _, m := range mails {
		out = append(out, m.Subject)
	}
	return out
}

func discardLogger() logging.Logger {
	return logging.Discard()
}
