package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFolder(t *testing.T) {
	f, err := ParseFolder("inbox")
	require.NoError(t, err)
	assert.Equal(t, FolderInbox, f)

	f, err = ParseFolder("outbox")
	require.NoError(t, err)
	assert.Equal(t, FolderOutbox, f)

	_, err = ParseFolder("spam")
	assert.True(t, errors.Is(err, common.ErrUnknownFolder))
}

func TestEnvelope_CiphertextSelection(t *testing.T) {
	e := &Envelope{SenderData: "S", ReceiverData: "R", ToAddress: "0xbob"}

	assert.Equal(t, "R", e.CiphertextFor(FolderInbox))
	assert.Equal(t, "S", e.CiphertextFor(FolderOutbox))

	assert.Equal(t, "R", e.CiphertextForAccount("0xbob"))
	assert.Equal(t, "S", e.CiphertextForAccount("0xalice"))
}

func TestParseEnvelope(t *testing.T) {
	raw, err := (&Envelope{SenderData: "s", ReceiverData: "r", ToAddress: "0x1"}).Marshal()
	require.NoError(t, err)

	e, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "0x1", e.ToAddress)

	_, err = ParseEnvelope([]byte("not json"))
	assert.Error(t, err)
}

func TestThreadManifest_AppendDoesNotMutate(t *testing.T) {
	m := NewManifest(Link{Multihash: "a"})
	m2 := m.Append(Link{Multihash: "b"})

	assert.Len(t, m.Links, 1)
	require.Len(t, m2.Links, 2)
	assert.Equal(t, "a", m2.Links[0].Multihash)
	assert.Equal(t, "b", m2.Links[1].Multihash)

	raw, err := m2.Marshal()
	require.NoError(t, err)
	back, err := ParseManifest(raw)
	require.NoError(t, err)
	assert.Equal(t, m2, back)
}

func TestUploadResult_Link(t *testing.T) {
	l, err := Single(Link{Multihash: "one"}).Link()
	require.NoError(t, err)
	assert.Equal(t, "one", l.Multihash)

	l, err = List(Link{Multihash: "mail"}, Link{Multihash: "wrapper"}).Link()
	require.NoError(t, err)
	assert.Equal(t, "mail", l.Multihash)

	_, err = List().Link()
	assert.ErrorIs(t, err, common.ErrEmptyUpload)

	_, err = UploadResult{Kind: UploadKind(9), Links: []Link{{}}}.Link()
	assert.Error(t, err)
}

func TestNewMail_MergesEventAndContent(t *testing.T) {
	ev := MailEvent{
		TransactionHash: "0xtx",
		BlockNumber:     42,
		Args:            MailEventArgs{MailHash: "m", ThreadID: "t", FromAddress: "0xa", ToAddress: "0xb"},
	}
	m := NewMail(ev, MailContent{Subject: "hi", From: "alice@x", To: "bob@x"})

	assert.Equal(t, "0xtx", m.TransactionHash)
	assert.Equal(t, int64(42), m.BlockNumber)
	assert.Equal(t, "t", m.ThreadID)
	assert.Equal(t, "0xa", m.FromAddress)
	assert.Equal(t, "alice@x", m.From)
	assert.Equal(t, "hi", m.Subject)
}
