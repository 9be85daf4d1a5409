// Package models holds the ledger daemon's persisted records.
package models

import "time"

// Account binds an address to its public key and mail address. The
// starting block is the latest block at registration; no earlier mail can
// belong to the account.
type Account struct {
	Address       string
	PublicKey     string
	MailAddress   string
	StartingBlock int64
	CreatedAt     time.Time
}
