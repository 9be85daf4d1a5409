package accounts

import (
	"context"

	"github.com/dmitrijs2005/melonmail/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, acc *models.Account) (*models.Account, error)
	GetByAddress(ctx context.Context, address string) (*models.Account, error)
	GetByMailAddress(ctx context.Context, mailAddress string) (*models.Account, error)
}
