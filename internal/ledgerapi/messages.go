// Package ledgerapi is the wire contract between the mail client and the
// ledger daemon: request/response messages, a JSON codec for gRPC and the
// hand-written service descriptor with its client stub.
package ledgerapi

// Event is a mail-send event as carried on the wire.
type Event struct {
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     int64  `json:"block_number"`
	MailHash        string `json:"mail_hash"`
	ThreadHash      string `json:"thread_hash"`
	ThreadID        string `json:"thread_id"`
	FromAddress     string `json:"from_address"`
	ToAddress       string `json:"to_address"`
}

type ChallengeRequest struct {
	Address string `json:"address"`
}

// ChallengeResponse carries a nonce sealed to the account public key.
type ChallengeResponse struct {
	ChallengeID string `json:"challenge_id"`
	Sealed      string `json:"sealed"`
}

type LoginRequest struct {
	Address     string `json:"address"`
	ChallengeID string `json:"challenge_id"`
	Answer      string `json:"answer"`
}

type LoginResponse struct {
	AccessToken   string `json:"access_token"`
	StartingBlock int64  `json:"starting_block"`
	MailAddress   string `json:"mail_address"`
}

type RegisterRequest struct {
	MailAddress string `json:"mail_address"`
	Address     string `json:"address"`
	PublicKey   string `json:"public_key"`
}

type RegisterResponse struct {
	StartingBlock int64 `json:"starting_block"`
}

type ResolveAddressRequest struct {
	MailAddress string `json:"mail_address"`
}

type ResolveAddressResponse struct {
	MailAddress string `json:"mail_address"`
	Address     string `json:"address"`
	PublicKey   string `json:"public_key"`
}

type GetThreadRequest struct {
	ThreadID   string `json:"thread_id"`
	AfterBlock int64  `json:"after_block"`
}

type GetThreadResponse struct {
	Event Event `json:"event"`
}

// GetMailsRequest asks for one page of a folder. A nil FetchToBlock means
// "from the latest block".
type GetMailsRequest struct {
	Folder        string `json:"folder"`
	FetchToBlock  *int64 `json:"fetch_to_block,omitempty"`
	BatchSize     int64  `json:"batch_size"`
	StartingBlock int64  `json:"starting_block"`
}

type GetMailsResponse struct {
	Events    []Event `json:"events"`
	FromBlock int64   `json:"from_block"`
}

type SendMailRequest struct {
	ToAddress  string `json:"to_address"`
	MailHash   string `json:"mail_hash"`
	ThreadHash string `json:"thread_hash"`
	ThreadID   string `json:"thread_id"`
}

type SendMailResponse struct {
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     int64  `json:"block_number"`
}

type LatestBlockRequest struct{}

type LatestBlockResponse struct {
	BlockNumber int64 `json:"block_number"`
}

type ListenRequest struct{}

// ListenEvent is one live event tagged with the folder it belongs to for
// the subscribed account.
type ListenEvent struct {
	Event  Event  `json:"event"`
	Folder string `json:"folder"`
}
