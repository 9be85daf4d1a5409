package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/common"
)

// Link references one object in the content store.
type Link struct {
	Multihash string `json:"multihash"`
	Size      int64  `json:"size,omitempty"`
}

// ThreadManifest lists the mails of a conversation, oldest first.
// It is never modified in place; Append returns a new manifest.
type ThreadManifest struct {
	Links []Link `json:"links"`
}

// NewManifest starts a thread with a single mail.
func NewManifest(first Link) ThreadManifest {
	return ThreadManifest{Links: []Link{first}}
}

// Append returns a copy of m with link added at the end.
func (m ThreadManifest) Append(link Link) ThreadManifest {
	links := make([]Link, 0, len(m.Links)+1)
	links = append(links, m.Links...)
	links = append(links, link)
	return ThreadManifest{Links: links}
}

// Marshal encodes m as stored in the content store.
func (m ThreadManifest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ParseManifest decodes a stored manifest.
func ParseManifest(raw []byte) (ThreadManifest, error) {
	var m ThreadManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return ThreadManifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// UploadKind tags an UploadResult.
type UploadKind int

const (
	SingleLink UploadKind = iota
	LinkList
)

// UploadResult is what the content store returns for an upload: either one
// link or a list of links (the first one being the mail object itself).
type UploadResult struct {
	Kind  UploadKind
	Links []Link
}

// Single wraps one link.
func Single(l Link) UploadResult {
	return UploadResult{Kind: SingleLink, Links: []Link{l}}
}

// List wraps several links, the mail object first.
func List(ls ...Link) UploadResult {
	return UploadResult{Kind: LinkList, Links: ls}
}

// Link resolves the mail object link.
func (r UploadResult) Link() (Link, error) {
	switch r.Kind {
	case SingleLink, LinkList:
		if len(r.Links) == 0 {
			return Link{}, common.ErrEmptyUpload
		}
		return r.Links[0], nil
	default:
		return Link{}, fmt.Errorf("unknown upload kind %d", r.Kind)
	}
}
