// Package services contains the ledger daemon's business logic: account
// registration and challenge login, mining mail events into blocks and
// serving paged and per-thread event queries.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/dbx"
	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"github.com/dmitrijs2005/melonmail/internal/server/auth"
	"github.com/dmitrijs2005/melonmail/internal/server/config"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
	"github.com/dmitrijs2005/melonmail/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// LedgerService implements the ledger operations on top of the
// repositories. Every sent mail is mined into its own block.
type LedgerService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	broker                      *Broker
	challenges                  *auth.Challenges
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
	nonce                       func() string
}

// NewLedgerService constructs a LedgerService using repositories and server config.
func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, b *Broker, cfg *config.Config, logger logging.Logger) *LedgerService {
	return &LedgerService{
		db:                          db,
		repomanager:                 m,
		broker:                      b,
		challenges:                  auth.NewChallenges(cfg.ChallengeValidityDuration),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "ledger"),
		nonce:                       uuid.NewString,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{common.ErrInvalidRequest}, args...)...)
}

// Register binds address to publicKey and mailAddress. The address must be
// derived from the public key. The account starts at the latest block.
func (s *LedgerService) Register(ctx context.Context, mailAddress, address, publicKey string) (*models.Account, error) {
	mailAddress = strings.TrimSpace(mailAddress)
	if mailAddress == "" || !strings.Contains(mailAddress, "@") {
		return nil, invalid("mail address %q", mailAddress)
	}
	pub, err := cryptox.DecodeKey(publicKey)
	if err != nil {
		return nil, invalid("public key")
	}
	if !cryptox.SameAddress(cryptox.AddressFromPublicKey(pub), address) {
		return nil, invalid("address does not match public key")
	}

	latest, err := s.repomanager.Events(s.db).LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Address:       strings.ToLower(address),
		PublicKey:     publicKey,
		MailAddress:   mailAddress,
		StartingBlock: latest,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "address", acc.Address, "mail_address", acc.MailAddress)
	return acc, nil
}

// Challenge issues a login challenge sealed to the account's public key.
func (s *LedgerService) Challenge(ctx context.Context, address string) (id, sealed string, err error) {
	acc, err := s.repomanager.Accounts(s.db).GetByAddress(ctx, strings.ToLower(address))
	if err != nil {
		return "", "", err
	}
	pub, err := cryptox.DecodeKey(acc.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("stored public key: %w", err)
	}
	return s.challenges.Issue(acc.Address, pub)
}

// Login checks the challenge answer and issues an access token.
func (s *LedgerService) Login(ctx context.Context, address, challengeID, answer string) (string, *models.Account, error) {
	address = strings.ToLower(address)
	if err := s.challenges.Verify(challengeID, address, answer); err != nil {
		s.logger.Warn(ctx, "login rejected", "address", address)
		return "", nil, err
	}

	acc, err := s.repomanager.Accounts(s.db).GetByAddress(ctx, address)
	if err != nil {
		return "", nil, err
	}

	token, err := auth.GenerateToken(acc.Address, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, acc, nil
}

// ResolveAddress looks an account up by mail address.
func (s *LedgerService) ResolveAddress(ctx context.Context, mailAddress string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByMailAddress(ctx, strings.TrimSpace(mailAddress))
}

// LatestBlock returns the highest mined block.
func (s *LedgerService) LatestBlock(ctx context.Context) (int64, error) {
	return s.repomanager.Events(s.db).LatestBlock(ctx)
}

// GetThread returns the newest event of threadID at or after afterBlock.
func (s *LedgerService) GetThread(ctx context.Context, threadID string, afterBlock int64) (*models.MailEvent, error) {
	if threadID == "" {
		return nil, invalid("empty thread id")
	}
	return s.repomanager.Events(s.db).LatestInThread(ctx, threadID, afterBlock)
}

// GetMails returns address's events of folder in the window
// (max(startingBlock, to-batchSize), to], newest first, where to is
// fetchToBlock or the latest block. The lower bound is returned so the
// caller can page further back.
func (s *LedgerService) GetMails(ctx context.Context, address string, folder models.Folder, fetchToBlock *int64, batchSize, startingBlock int64) ([]models.MailEvent, int64, error) {
	if batchSize <= 0 {
		return nil, 0, invalid("batch size %d", batchSize)
	}

	repo := s.repomanager.Events(s.db)
	latest, err := repo.LatestBlock(ctx)
	if err != nil {
		return nil, 0, err
	}

	from, to := ledgerapi.Window(latest, fetchToBlock, batchSize, startingBlock)
	if from == to {
		return nil, from, nil
	}

	events, err := repo.ListForAccount(ctx, strings.ToLower(address), folder, from, to)
	if err != nil {
		return nil, 0, err
	}
	return events, from, nil
}

// SendMail mines a mail event from -> to and publishes it to live
// subscribers once committed.
func (s *LedgerService) SendMail(ctx context.Context, from, to, mailHash, threadHash, threadID string) (*models.MailEvent, error) {
	if to == "" || mailHash == "" || threadHash == "" || threadID == "" {
		return nil, invalid("missing mail event field")
	}
	if _, err := s.repomanager.Accounts(s.db).GetByAddress(ctx, strings.ToLower(to)); err != nil {
		return nil, err
	}

	ev := &models.MailEvent{
		MailHash:    mailHash,
		ThreadHash:  threadHash,
		ThreadID:    threadID,
		FromAddress: strings.ToLower(from),
		ToAddress:   strings.ToLower(to),
	}
	ev.TransactionHash = cryptox.Keccak256Hex(
		[]byte(ev.FromAddress), []byte(ev.ToAddress), []byte(mailHash),
		[]byte(threadHash), []byte(threadID), []byte(s.nonce()),
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Events(tx)
		if err := repo.LockMining(ctx); err != nil {
			return err
		}
		block, err := repo.NextBlock(ctx)
		if err != nil {
			return err
		}
		ev.BlockNumber = block
		return repo.Insert(ctx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("mine mail event: %w", err)
	}

	s.logger.Debug(ctx, "mail mined", "block", ev.BlockNumber, "tx", ev.TransactionHash)
	s.broker.Publish(ctx, *ev)
	return ev, nil
}

// Subscribe streams the account's new events until cancel is called.
func (s *LedgerService) Subscribe(address string) (<-chan TaggedEvent, func()) {
	return s.broker.Subscribe(strings.ToLower(address))
}
