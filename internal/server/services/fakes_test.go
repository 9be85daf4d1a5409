package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/dbx"
	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"github.com/dmitrijs2005/melonmail/internal/server/config"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
	"github.com/dmitrijs2005/melonmail/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/melonmail/internal/server/repositories/events"
	"github.com/stretchr/testify/require"
)

// fakeStore backs both fake repositories with plain slices.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	events   []models.MailEvent
	next     int64
	locked   int

	latestErr error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]models.Account), next: 1}
}

type fakeAccounts struct{ s *fakeStore }

func (f fakeAccounts) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if a.Address == acc.Address || strings.EqualFold(a.MailAddress, acc.MailAddress) {
			return nil, common.ErrAlreadyExists
		}
	}
	acc.CreatedAt = time.Now()
	f.s.accounts[acc.Address] = *acc
	return acc, nil
}

func (f fakeAccounts) GetByAddress(ctx context.Context, address string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[address]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	return &a, nil
}

func (f fakeAccounts) GetByMailAddress(ctx context.Context, mailAddress string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if strings.EqualFold(a.MailAddress, mailAddress) {
			return &a, nil
		}
	}
	return nil, common.ErrAccountNotFound
}

// fakeEvents keeps events in the fake store but takes the mining lock
// through the real repository, so it shows up on the sqlmock connection.
type fakeEvents struct {
	s  *fakeStore
	db dbx.DBTX
}

func (f fakeEvents) LockMining(ctx context.Context) error {
	if err := events.NewPostgresRepository(f.db).LockMining(ctx); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.locked++
	return nil
}

func (f fakeEvents) NextBlock(ctx context.Context) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.locked == 0 {
		return 0, errors.New("block allocated without the mining lock")
	}
	b := f.s.next
	f.s.next++
	return b, nil
}

func (f fakeEvents) LatestBlock(ctx context.Context) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.latestErr != nil {
		return 0, f.s.latestErr
	}
	var latest int64
	for _, ev := range f.s.events {
		if ev.BlockNumber > latest {
			latest = ev.BlockNumber
		}
	}
	return latest, nil
}

func (f fakeEvents) Insert(ctx context.Context, ev *models.MailEvent) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.insertErr != nil {
		return f.s.insertErr
	}
	f.s.events = append(f.s.events, *ev)
	return nil
}

func (f fakeEvents) ListForAccount(ctx context.Context, address string, folder models.Folder, fromBlock, toBlock int64) ([]models.MailEvent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.MailEvent
	for i := len(f.s.events) - 1; i >= 0; i-- {
		ev := f.s.events[i]
		if !ledgerapi.Contains(fromBlock, toBlock, ev.BlockNumber) {
			continue
		}
		if (folder == models.FolderInbox && ev.ToAddress == address) ||
			(folder == models.FolderOutbox && ev.FromAddress == address) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f fakeEvents) LatestInThread(ctx context.Context, threadID string, afterBlock int64) (*models.MailEvent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i := len(f.s.events) - 1; i >= 0; i-- {
		ev := f.s.events[i]
		if ev.ThreadID == threadID && ev.BlockNumber >= afterBlock {
			return &ev, nil
		}
	}
	return nil, common.ErrThreadNotFound
}

type fakeManager struct{ s *fakeStore }

func (m fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeManager) Accounts(dbx.DBTX) accounts.Repository        { return fakeAccounts(m) }
func (m fakeManager) Events(db dbx.DBTX) events.Repository         { return fakeEvents{s: m.s, db: db} }

type fixture struct {
	svc    *LedgerService
	store  *fakeStore
	mock   sqlmock.Sqlmock
	broker *Broker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		ChallengeValidityDuration:   time.Minute,
	}
	store := newFakeStore()
	broker := NewBroker(4, logging.Discard())
	return &fixture{
		svc:    NewLedgerService(db, fakeManager{s: store}, broker, cfg, logging.Discard()),
		store:  store,
		mock:   mock,
		broker: broker,
	}
}
