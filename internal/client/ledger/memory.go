package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
	"github.com/google/uuid"
)

// Memory is an in-process ledger with the same window and tagging rules as
// the daemon. Connect returns per-account clients sharing one chain.
type Memory struct {
	mu         sync.Mutex
	latest     int64
	events     []models.MailEvent
	accounts   map[string]Account
	byMail     map[string]string
	listeners  map[int]*memoryListener
	nextListen int
}

// memoryListener runs one delivery at a time; stopped is only flipped
// while no delivery is running.
type memoryListener struct {
	account string
	h       Handler
	ctx     context.Context

	mu      sync.Mutex
	stopped bool
}

func (l *memoryListener) deliver(ev models.TaggedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.h(l.ctx, ev)
}

// NewMemory creates a ledger whose latest block is latest.
func NewMemory(latest int64) *Memory {
	return &Memory{
		latest:    latest,
		accounts:  make(map[string]Account),
		byMail:    make(map[string]string),
		listeners: make(map[int]*memoryListener),
	}
}

// LatestBlock returns the current chain head.
func (m *Memory) LatestBlock() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Mine advances the chain head by n empty blocks.
func (m *Memory) Mine(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest += n
}

// Append records ev as already mined at ev.BlockNumber, moving the head
// forward when needed. Live listeners are not notified.
func (m *Memory) Append(ev models.MailEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.TransactionHash == "" {
		ev.TransactionHash = txHash(ev.Args)
	}
	m.events = append(m.events, ev)
	if ev.BlockNumber > m.latest {
		m.latest = ev.BlockNumber
	}
}

// AddAccount registers an account directly with the given starting block.
func (m *Memory) AddAccount(acc Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.Address] = acc
	if acc.MailAddress != "" {
		m.byMail[strings.ToLower(acc.MailAddress)] = acc.Address
	}
}

// Connect returns an unauthenticated client of the ledger.
func (m *Memory) Connect() *MemoryClient {
	return &MemoryClient{ledger: m}
}

func txHash(args models.MailEventArgs) string {
	return cryptox.Keccak256Hex(
		[]byte(args.FromAddress),
		[]byte(args.ToAddress),
		[]byte(args.MailHash),
		[]byte(args.ThreadHash),
		[]byte(args.ThreadID),
		[]byte(uuid.NewString()),
	)
}

func (m *Memory) register(mailAddress string, keys *cryptox.Keypair) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	address := keys.Address()
	if _, ok := m.accounts[address]; ok {
		return Account{}, common.ErrAlreadyExists
	}
	if _, ok := m.byMail[strings.ToLower(mailAddress)]; ok {
		return Account{}, common.ErrAlreadyExists
	}

	acc := Account{
		Address:       address,
		PublicKey:     cryptox.EncodeKey(keys.PublicKey),
		MailAddress:   mailAddress,
		StartingBlock: m.latest,
	}
	m.accounts[address] = acc
	m.byMail[strings.ToLower(mailAddress)] = address
	return acc, nil
}

func (m *Memory) account(address string) (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[address]
	return acc, ok
}

func (m *Memory) resolve(mailAddress string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	address, ok := m.byMail[strings.ToLower(mailAddress)]
	if !ok {
		return Account{}, common.ErrAccountNotFound
	}
	return m.accounts[address], nil
}

func belongsTo(folder models.Folder, account string, args models.MailEventArgs) bool {
	switch folder {
	case models.FolderInbox:
		return cryptox.SameAddress(args.ToAddress, account)
	case models.FolderOutbox:
		return cryptox.SameAddress(args.FromAddress, account)
	}
	return false
}

func (m *Memory) mails(account string, folder models.Folder, fetchToBlock *int64, batchSize, startingBlock int64) ([]models.MailEvent, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, to := ledgerapi.Window(m.latest, fetchToBlock, batchSize, startingBlock)

	var out []models.MailEvent
	for _, ev := range m.events {
		if ledgerapi.Contains(from, to, ev.BlockNumber) && belongsTo(folder, account, ev.Args) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BlockNumber > out[j].BlockNumber })
	return out, from
}

func (m *Memory) thread(threadID string, afterBlock int64) (models.MailEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		found bool
		last  models.MailEvent
	)
	for _, ev := range m.events {
		if ev.Args.ThreadID != threadID || ev.BlockNumber < afterBlock {
			continue
		}
		if !found || ev.BlockNumber >= last.BlockNumber {
			last = ev
			found = true
		}
	}
	if !found {
		return models.MailEvent{}, common.ErrThreadNotFound
	}
	return last, nil
}

func (m *Memory) send(args models.MailEventArgs) models.MailEvent {
	m.mu.Lock()
	m.latest++
	ev := models.MailEvent{
		TransactionHash: txHash(args),
		BlockNumber:     m.latest,
		Args:            args,
	}
	m.events = append(m.events, ev)

	var deliveries []func()
	for _, l := range m.listeners {
		for _, folder := range models.Folders {
			if belongsTo(folder, l.account, args) {
				l, tagged := l, models.TaggedEvent{Event: ev, Folder: folder}
				deliveries = append(deliveries, func() { l.deliver(tagged) })
			}
		}
	}
	m.mu.Unlock()

	for _, d := range deliveries {
		d()
	}
	return ev
}

func (m *Memory) listen(ctx context.Context, account string, h Handler) func() {
	m.mu.Lock()
	id := m.nextListen
	m.nextListen++
	l := &memoryListener{account: account, h: h, ctx: ctx}
	m.listeners[id] = l
	m.mu.Unlock()

	// stop waits for a running delivery, so it must not be called from h.
	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()

			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
		})
	}
	context.AfterFunc(ctx, stop)
	return stop
}

// Listeners reports the number of live subscriptions.
func (m *Memory) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// MemoryClient is one account's connection to a Memory ledger.
type MemoryClient struct {
	ledger *Memory

	mu      sync.RWMutex
	address string
}

var _ Client = (*MemoryClient)(nil)

func (c *MemoryClient) current() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.address == "" {
		return "", common.ErrNotLoggedIn
	}
	return c.address, nil
}

func (c *MemoryClient) Register(ctx context.Context, mailAddress string, keys *cryptox.Keypair) (Account, error) {
	return c.ledger.register(mailAddress, keys)
}

func (c *MemoryClient) Login(ctx context.Context, keys *cryptox.Keypair) (Account, error) {
	acc, ok := c.ledger.account(keys.Address())
	if !ok {
		return Account{}, ErrUnauthorized
	}
	c.mu.Lock()
	c.address = acc.Address
	c.mu.Unlock()
	return acc, nil
}

func (c *MemoryClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = ""
	return nil
}

func (c *MemoryClient) Close() error {
	return c.Logout(context.Background())
}

func (c *MemoryClient) GetAccount(ctx context.Context) (Account, error) {
	address, err := c.current()
	if err != nil {
		return Account{}, err
	}
	acc, ok := c.ledger.account(address)
	if !ok {
		return Account{}, common.ErrAccountNotFound
	}
	return acc, nil
}

func (c *MemoryClient) ResolveAddress(ctx context.Context, mailAddress string) (Account, error) {
	return c.ledger.resolve(mailAddress)
}

func (c *MemoryClient) GetThread(ctx context.Context, threadID string, afterBlock int64) (models.MailEvent, error) {
	if _, err := c.current(); err != nil {
		return models.MailEvent{}, err
	}
	return c.ledger.thread(threadID, afterBlock)
}

func (c *MemoryClient) GetMails(ctx context.Context, folder models.Folder, fetchToBlock *int64, batchSize, startingBlock int64) ([]models.MailEvent, int64, error) {
	address, err := c.current()
	if err != nil {
		return nil, 0, err
	}
	if batchSize <= 0 {
		return nil, 0, fmt.Errorf("%w: batch size %d", common.ErrInvalidRequest, batchSize)
	}
	events, from := c.ledger.mails(address, folder, fetchToBlock, batchSize, startingBlock)
	return events, from, nil
}

func (c *MemoryClient) SendMail(ctx context.Context, toAddress, mailHash, threadHash, threadID string) (models.MailEvent, error) {
	address, err := c.current()
	if err != nil {
		return models.MailEvent{}, err
	}
	return c.ledger.send(models.MailEventArgs{
		MailHash:    mailHash,
		ThreadHash:  threadHash,
		ThreadID:    threadID,
		FromAddress: address,
		ToAddress:   toAddress,
	}), nil
}

func (c *MemoryClient) ListenForMails(ctx context.Context, h Handler) (func(), error) {
	address, err := c.current()
	if err != nil {
		return nil, err
	}
	return c.ledger.listen(ctx, address, h), nil
}
