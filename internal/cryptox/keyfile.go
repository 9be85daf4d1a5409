package cryptox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/filex"
)

// ErrWrongPassphrase is returned when a keyfile cannot be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupt keyfile")

const keyfileVersion = 1

// Identity is what a keyfile protects: the keypair plus the mail address it
// was registered under.
type Identity struct {
	Keys        *Keypair
	MailAddress string
}

type keyfileSecret struct {
	PublicKey   string `json:"public_key"`
	PrivateKey  string `json:"private_key"`
	MailAddress string `json:"mail_address"`
}

type keyfile struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// SealIdentity encrypts id under a key derived from passphrase.
func SealIdentity(id Identity, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(16)
	key := DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	secret := keyfileSecret{
		PublicKey:   EncodeKey(id.Keys.PublicKey),
		PrivateKey:  EncodeKey(id.Keys.PrivateKey),
		MailAddress: id.MailAddress,
	}

	ct, nonce, err := SealJSON(secret, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt keyfile: %w", err)
	}

	return json.MarshalIndent(keyfile{
		Version:    keyfileVersion,
		Address:    id.Keys.Address(),
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ct,
	}, "", "  ")
}

// OpenIdentity decrypts a keyfile produced by SealIdentity.
func OpenIdentity(data []byte, passphrase []byte) (*Identity, error) {
	var kf keyfile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyfile: %w", err)
	}
	if kf.Version != keyfileVersion {
		return nil, fmt.Errorf("unsupported keyfile version %d", kf.Version)
	}

	key := DeriveMasterKey(passphrase, kf.Salt)
	defer common.WipeByteArray(key)

	var secret keyfileSecret
	if err := OpenJSON(kf.Ciphertext, kf.Nonce, key, &secret); err != nil {
		return nil, ErrWrongPassphrase
	}

	pub, err := DecodeKey(secret.PublicKey)
	if err != nil {
		return nil, err
	}
	priv, err := DecodeKey(secret.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Identity{Keys: &Keypair{PublicKey: pub, PrivateKey: priv}, MailAddress: secret.MailAddress}, nil
}

// SaveKeyfile seals id and writes it to path with owner-only permissions.
// Used both for the working keyfile and for backups.
func SaveKeyfile(path string, id Identity, passphrase []byte) error {
	data, err := SealIdentity(id, passphrase)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(path, data, 0o600)
}

// LoadKeyfile reads and opens the keyfile at path.
func LoadKeyfile(path string, passphrase []byte) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyfile: %w", err)
	}
	return OpenIdentity(data, passphrase)
}
