// Package accounts stores registered ledger accounts in PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/dbx"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository binds the repository to db, a pool or a transaction.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts acc. A taken address or mail address yields
// common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (address, public_key, mail_address, starting_block)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		acc.Address, acc.PublicKey, acc.MailAddress, acc.StartingBlock).Scan(&acc.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acc, nil
}

func (r *PostgresRepository) GetByAddress(ctx context.Context, address string) (*models.Account, error) {
	query :=
		`SELECT address, public_key, mail_address, starting_block, created_at FROM accounts
		 WHERE address = $1
		 `

	return r.getOne(ctx, query, address)
}

// GetByMailAddress looks the account up case-insensitively.
func (r *PostgresRepository) GetByMailAddress(ctx context.Context, mailAddress string) (*models.Account, error) {
	query :=
		`SELECT address, public_key, mail_address, starting_block, created_at FROM accounts
		 WHERE lower(mail_address) = lower($1)
		 `

	return r.getOne(ctx, query, mailAddress)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	acc := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&acc.Address, &acc.PublicKey, &acc.MailAddress, &acc.StartingBlock, &acc.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acc, nil
}
