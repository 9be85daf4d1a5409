// Package ledger is the client side of the append-only mail ledger: the
// Gateway the mailbox pipeline reads events from and submits sends to, a
// gRPC implementation talking to the ledger daemon and an in-memory ledger.
package ledger

import (
	"context"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
)

// Account is a registered ledger identity.
type Account struct {
	Address       string
	PublicKey     string
	MailAddress   string
	StartingBlock int64
}

// Handler receives live events. It is called sequentially from the
// subscription goroutine.
type Handler func(ctx context.Context, ev models.TaggedEvent)

// Gateway is what the mailbox pipeline needs from the ledger. Every call is
// made on behalf of the logged-in account.
type Gateway interface {
	// GetAccount returns the logged-in account.
	GetAccount(ctx context.Context) (Account, error)
	// ResolveAddress looks up an account by its mail address.
	ResolveAddress(ctx context.Context, mailAddress string) (Account, error)
	// GetThread returns the newest event of threadID at or after afterBlock.
	GetThread(ctx context.Context, threadID string, afterBlock int64) (models.MailEvent, error)
	// GetMails returns the folder's events in (fromBlock, to], newest first.
	// to is the latest block when fetchToBlock is nil.
	GetMails(ctx context.Context, folder models.Folder, fetchToBlock *int64, batchSize, startingBlock int64) ([]models.MailEvent, int64, error)
	// SendMail records a send and returns the mined event.
	SendMail(ctx context.Context, toAddress, mailHash, threadHash, threadID string) (models.MailEvent, error)
	// ListenForMails delivers new events to h until the returned stop func
	// is called or ctx is done.
	ListenForMails(ctx context.Context, h Handler) (stop func(), err error)
}

// Authenticator covers account lifecycle on the ledger.
type Authenticator interface {
	Register(ctx context.Context, mailAddress string, keys *cryptox.Keypair) (Account, error)
	Login(ctx context.Context, keys *cryptox.Keypair) (Account, error)
	// Logout forgets the access token and keys; the connection stays open.
	Logout(ctx context.Context) error
	Close() error
}

// Client is a full ledger connection.
type Client interface {
	Gateway
	Authenticator
}
