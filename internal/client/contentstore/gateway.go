// Package contentstore implements the content-addressed store holding mail
// envelopes and thread manifests. Every object is keyed by the multihash of
// its bytes, so writes are idempotent and objects never change.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
)

// Gateway is the content store contract used by the mail pipeline.
type Gateway interface {
	// GetThread resolves a manifest hash to the thread manifest.
	GetThread(ctx context.Context, hash string) (models.ThreadManifest, error)
	// GetFileContent returns the raw bytes stored under hash.
	GetFileContent(ctx context.Context, hash string) ([]byte, error)
	// UploadMail stores an envelope and returns its link(s).
	UploadMail(ctx context.Context, env *models.Envelope) (models.UploadResult, error)
	// NewThread writes a manifest holding only link.
	NewThread(ctx context.Context, link models.Link) (models.Link, error)
	// ReplyToThread appends link to the manifest at threadHash and writes
	// the result as a new manifest.
	ReplyToThread(ctx context.Context, link models.Link, threadHash string) (models.Link, error)
}

// Multihash returns the sha2-256 multihash of data in hex: the 0x12 code,
// the 0x20 digest length, then the digest.
func Multihash(data []byte) string {
	sum := sha256.Sum256(data)
	return "1220" + hex.EncodeToString(sum[:])
}

// Matches reports whether data is the content addressed by hash.
func Matches(hash string, data []byte) bool {
	return Multihash(data) == hash
}

// blobStore is the minimal put/get surface the manifest logic needs; S3 and
// the in-memory store both provide it.
type blobStore interface {
	put(ctx context.Context, key string, data []byte) error
	get(ctx context.Context, key string) ([]byte, error)
}

// addressed implements Gateway on top of any blobStore.
type addressed struct {
	blobs blobStore
}

func (a addressed) putAddressed(ctx context.Context, data []byte) (models.Link, error) {
	link := models.Link{Multihash: Multihash(data), Size: int64(len(data))}
	if err := a.blobs.put(ctx, link.Multihash, data); err != nil {
		return models.Link{}, err
	}
	return link, nil
}

// fetch reads hash from the backend and rejects bytes that do not hash to
// it.
func (a addressed) fetch(ctx context.Context, hash string) ([]byte, error) {
	raw, err := a.blobs.get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !Matches(hash, raw) {
		return nil, fmt.Errorf("%s: %w", hash, common.ErrContentMismatch)
	}
	return raw, nil
}

func (a addressed) GetFileContent(ctx context.Context, hash string) ([]byte, error) {
	return a.fetch(ctx, hash)
}

func (a addressed) GetThread(ctx context.Context, hash string) (models.ThreadManifest, error) {
	raw, err := a.fetch(ctx, hash)
	if err != nil {
		return models.ThreadManifest{}, err
	}
	return models.ParseManifest(raw)
}

func (a addressed) UploadMail(ctx context.Context, env *models.Envelope) (models.UploadResult, error) {
	raw, err := env.Marshal()
	if err != nil {
		return models.UploadResult{}, err
	}
	link, err := a.putAddressed(ctx, raw)
	if err != nil {
		return models.UploadResult{}, err
	}
	return models.Single(link), nil
}

func (a addressed) NewThread(ctx context.Context, link models.Link) (models.Link, error) {
	return a.writeManifest(ctx, models.NewManifest(link))
}

func (a addressed) ReplyToThread(ctx context.Context, link models.Link, threadHash string) (models.Link, error) {
	m, err := a.GetThread(ctx, threadHash)
	if err != nil {
		return models.Link{}, err
	}
	return a.writeManifest(ctx, m.Append(link))
}

func (a addressed) writeManifest(ctx context.Context, m models.ThreadManifest) (models.Link, error) {
	raw, err := m.Marshal()
	if err != nil {
		return models.Link{}, err
	}
	return a.putAddressed(ctx, raw)
}
