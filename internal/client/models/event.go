package models

// MailEventArgs are the indexed arguments of a mail-send ledger event.
type MailEventArgs struct {
	MailHash    string `json:"mailHash"`
	ThreadHash  string `json:"threadHash"`
	ThreadID    string `json:"threadId"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

// MailEvent is an immutable record emitted by the ledger for one send.
type MailEvent struct {
	TransactionHash string        `json:"transactionHash"`
	BlockNumber     int64         `json:"blockNumber"`
	Args            MailEventArgs `json:"args"`
}

// TaggedEvent is a live event together with the folder the ledger assigned
// it to for the current account.
type TaggedEvent struct {
	Event  MailEvent
	Folder Folder
}
