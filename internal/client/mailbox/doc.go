// Package mailbox reconstructs the user's mailbox from the ledger and the
// content store.
//
// A Session holds everything that belongs to one logged-in account: the
// keypair, the per-folder mailbox state, the active thread and the live
// subscription. The pipeline components are stateless and operate on a
// session passed explicitly:
//
//   - Synchronizer pages a folder backwards in block windows.
//   - ThreadReconstructor resolves a thread manifest into its mails.
//   - Sender uploads an envelope and records it on the ledger.
//   - Listener prepends mails as they arrive.
//
// State transitions are reported through the session's Notifier.
package mailbox
