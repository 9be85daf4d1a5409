package mailbox

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds parallel content-store reads per page or thread.
const fetchConcurrency = 16

type openedMail struct {
	Envelope *models.Envelope
	Content  models.MailContent
}

// openMail downloads one envelope, picks the copy readable by keys and
// decrypts it.
func openMail(ctx context.Context, store contentstore.Gateway, keys *cryptox.Keypair, hash string, pick func(*models.Envelope) string) (openedMail, error) {
	raw, err := store.GetFileContent(ctx, hash)
	if err != nil {
		return openedMail{}, fmt.Errorf("get content %s: %w", hash, err)
	}

	env, err := models.ParseEnvelope(raw)
	if err != nil {
		return openedMail{}, fmt.Errorf("content %s: %w", hash, err)
	}

	content, err := cryptox.DecryptMail(keys, pick(env))
	if err != nil {
		return openedMail{}, fmt.Errorf("content %s: %w", hash, err)
	}
	return openedMail{Envelope: env, Content: content}, nil
}

// openAll opens every hash in parallel. The result is in input order; the
// first failure cancels the rest and fails the whole batch.
func openAll(ctx context.Context, store contentstore.Gateway, keys *cryptox.Keypair, hashes []string, pick func(*models.Envelope) string) ([]openedMail, error) {
	out := make([]openedMail, len(hashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, h := range hashes {
		g.Go(func() error {
			m, err := openMail(gctx, store, keys, h, pick)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
