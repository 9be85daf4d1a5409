package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/melonmail/internal/client/mailbox"
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// ErrKeyfileExists is returned by Register when the configured keyfile
// already holds an identity.
var ErrKeyfileExists = errors.New("keyfile already exists")

// Register creates a new keypair, registers it on the ledger under
// name@domain and seals it into the configured keyfile. On success the new
// account is logged in.
func (a *App) Register(ctx context.Context) error {
	if _, err := os.Stat(a.config.KeyfilePath); err == nil {
		return a.fail(ctx, "register", fmt.Errorf("%w: %s", ErrKeyfileExists, a.config.KeyfilePath))
	}

	name, err := getSimpleText(a.reader, "Choose a mail name", a.out)
	if err != nil {
		return err
	}
	mailAddress := a.qualify(name)
	if mailAddress == "" {
		return a.fail(ctx, "register", common.ErrInvalidRequest)
	}

	passphrase, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	keys, err := cryptox.GenerateKeypair()
	if err != nil {
		return a.fail(ctx, "register", err)
	}

	rctx, cancel := a.requestCtx(ctx)
	defer cancel()

	acc, err := a.ledger.Register(rctx, mailAddress, keys)
	if err != nil {
		keys.Wipe()
		return a.fail(ctx, "register", err)
	}

	id := cryptox.Identity{Keys: keys, MailAddress: acc.MailAddress}
	if err := cryptox.SaveKeyfile(a.config.KeyfilePath, id, passphrase); err != nil {
		keys.Wipe()
		return a.fail(ctx, "save keyfile", err)
	}

	a.printf("Registered %s (keyfile %s)\n", acc.MailAddress, a.config.KeyfilePath)
	return a.startSession(ctx, &id)
}

// Login unlocks the keyfile with the passphrase and logs in to the ledger,
// then loads the first inbox page.
func (a *App) Login(ctx context.Context) error {
	passphrase, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	id, err := cryptox.LoadKeyfile(a.config.KeyfilePath, passphrase)
	if err != nil {
		return a.fail(ctx, "login", err)
	}

	return a.startSession(ctx, id)
}

func (a *App) startSession(ctx context.Context, id *cryptox.Identity) error {
	rctx, cancel := a.requestCtx(ctx)
	acc, err := a.ledger.Login(rctx, id.Keys)
	cancel()
	if err != nil {
		id.Keys.Wipe()
		return a.fail(ctx, "login", err)
	}

	a.identity = id
	a.sess = mailbox.NewSession(id.Keys, acc, a.config.BatchSize, a)
	a.logger.Info(ctx, "logged in", "mail_address", acc.MailAddress, "address", acc.Address)
	a.printf("Logged in as %s\n", acc.MailAddress)

	return a.Open(ctx, models.FolderInbox.String())
}

// Logout tears down the session: the live subscription is stopped, the
// keypair is wiped and the ledger token is dropped.
func (a *App) Logout(ctx context.Context) error {
	a.endSession(ctx)
	if err := a.ledger.Logout(ctx); err != nil {
		return a.fail(ctx, "logout", err)
	}
	a.printf("Logged out\n")
	return nil
}

func (a *App) endSession(ctx context.Context) {
	if a.sess == nil {
		return
	}
	a.sess.Close()
	a.sess = nil
	a.identity = nil
	a.logger.Debug(ctx, "session closed")
}

// Backup writes the identity, sealed with a freshly entered passphrase, to
// the path given as the only argument.
func (a *App) Backup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.printf("Usage: backup <path>\n")
		return nil
	}

	passphrase, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	if err := cryptox.SaveKeyfile(args[0], *a.identity, passphrase); err != nil {
		return a.fail(ctx, "backup", err)
	}

	a.printf("Keyfile backup written to %s\n", args[0])
	return nil
}
