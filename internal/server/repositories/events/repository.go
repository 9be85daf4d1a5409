package events

import (
	"context"

	"github.com/dmitrijs2005/melonmail/internal/server/models"
)

type Repository interface {
	LockMining(ctx context.Context) error
	NextBlock(ctx context.Context) (int64, error)
	LatestBlock(ctx context.Context) (int64, error)
	Insert(ctx context.Context, ev *models.MailEvent) error
	ListForAccount(ctx context.Context, address string, folder models.Folder, fromBlock, toBlock int64) ([]models.MailEvent, error)
	LatestInThread(ctx context.Context, threadID string, afterBlock int64) (*models.MailEvent, error)
}
