// Package cli provides the interactive melonmail command-line client.
//
// It wires configuration, the ledger connection, the content store and the
// mailbox pipeline behind a small REPL. Typical flow: register or log in
// with the keyfile passphrase, open the inbox, page back with "more", open
// a thread and reply, and optionally "listen" for mail as it arrives.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
