package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"golang.org/x/crypto/nacl/box"
)

// Seal encrypts plaintext so that only the holder of recipient's private key
// can open it. The result is base64 so it can live inside JSON envelopes.
func Seal(plaintext []byte, recipient *[32]byte) (string, error) {
	out, err := box.SealAnonymous(nil, plaintext, recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a ciphertext produced by Seal. It fails with
// common.ErrDecrypt when keys is not the intended recipient or the payload
// is corrupt.
func Decrypt(keys *Keypair, ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecrypt, err)
	}
	plaintext, ok := box.OpenAnonymous(nil, raw, keys.PublicKey, keys.PrivateKey)
	if !ok {
		return nil, common.ErrDecrypt
	}
	return plaintext, nil
}

// DecryptMail opens a sealed mail payload and decodes the content.
func DecryptMail(keys *Keypair, ciphertext string) (models.MailContent, error) {
	var content models.MailContent

	plaintext, err := Decrypt(keys, ciphertext)
	if err != nil {
		return content, err
	}
	if err := json.Unmarshal(plaintext, &content); err != nil {
		return content, fmt.Errorf("%w: %v", common.ErrDecrypt, err)
	}
	return content, nil
}

// SealEnvelope encrypts content twice, once for the sender's own key and
// once for the receiver, and packs both copies into an envelope addressed
// from -> to.
func SealEnvelope(content models.MailContent, from, to string, senderKey, receiverKey *[32]byte) (*models.Envelope, error) {
	plaintext, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}

	senderData, err := Seal(plaintext, senderKey)
	if err != nil {
		return nil, fmt.Errorf("sender copy: %w", err)
	}
	receiverData, err := Seal(plaintext, receiverKey)
	if err != nil {
		return nil, fmt.Errorf("receiver copy: %w", err)
	}

	return &models.Envelope{
		SenderData:   senderData,
		ReceiverData: receiverData,
		ToAddress:    to,
		FromAddress:  from,
	}, nil
}
