// Package events stores mined mail events in PostgreSQL. Block numbers
// come from a sequence, one block per event.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/dbx"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
)

const eventColumns = `transaction_hash, block_number, mail_hash, thread_hash, thread_id, from_address, to_address, created_at`

// MiningLockKey is the transaction-scoped advisory lock that serializes
// block allocation with the commit of the event that owns the block.
const MiningLockKey int64 = 0x6d656c6f6e

type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository binds the repository to db, a pool or a transaction.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LockMining waits for the mining lock. It is released when the
// surrounding transaction ends, so it must run inside one.
func (r *PostgresRepository) LockMining(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, MiningLockKey); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// NextBlock reserves the next block number. Callers hold the mining lock
// so blocks become visible in order.
func (r *PostgresRepository) NextBlock(ctx context.Context) (int64, error) {
	var block int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('block_number_seq')`).Scan(&block); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return block, nil
}

// LatestBlock returns the highest mined block, 0 on an empty ledger.
func (r *PostgresRepository) LatestBlock(ctx context.Context) (int64, error) {
	var block int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(block_number), 0) FROM mail_events`).Scan(&block); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return block, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, ev *models.MailEvent) error {
	query :=
		`INSERT INTO mail_events (transaction_hash, block_number, mail_hash, thread_hash, thread_id, from_address, to_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		ev.TransactionHash, ev.BlockNumber, ev.MailHash, ev.ThreadHash, ev.ThreadID, ev.FromAddress, ev.ToAddress).
		Scan(&ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListForAccount returns the account's events of folder with block numbers
// in (fromBlock, toBlock], newest first.
func (r *PostgresRepository) ListForAccount(ctx context.Context, address string, folder models.Folder, fromBlock, toBlock int64) ([]models.MailEvent, error) {
	var column string
	switch folder {
	case models.FolderInbox:
		column = "to_address"
	case models.FolderOutbox:
		column = "from_address"
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownFolder, folder)
	}

	query := `SELECT ` + eventColumns + ` FROM mail_events
		 WHERE ` + column + ` = $1 AND block_number > $2 AND block_number <= $3
		 ORDER BY block_number DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, address, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.MailEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

// LatestInThread returns the newest event of threadID mined at or after
// afterBlock.
func (r *PostgresRepository) LatestInThread(ctx context.Context, threadID string, afterBlock int64) (*models.MailEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM mail_events
		 WHERE thread_id = $1 AND block_number >= $2
		 ORDER BY block_number DESC
		 LIMIT 1
		 `

	ev, err := scanEvent(r.db.QueryRowContext(ctx, query, threadID, afterBlock))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrThreadNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ev, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.MailEvent, error) {
	ev := &models.MailEvent{}
	err := s.Scan(&ev.TransactionHash, &ev.BlockNumber, &ev.MailHash, &ev.ThreadHash, &ev.ThreadID,
		&ev.FromAddress, &ev.ToAddress, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}
