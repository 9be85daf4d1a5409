package ledger

import (
	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
)

func eventFromWire(e ledgerapi.Event) models.MailEvent {
	return models.MailEvent{
		TransactionHash: e.TransactionHash,
		BlockNumber:     e.BlockNumber,
		Args: models.MailEventArgs{
			MailHash:    e.MailHash,
			ThreadHash:  e.ThreadHash,
			ThreadID:    e.ThreadID,
			FromAddress: e.FromAddress,
			ToAddress:   e.ToAddress,
		},
	}
}

func eventsFromWire(in []ledgerapi.Event) []models.MailEvent {
	out := make([]models.MailEvent, 0, len(in))
	for _, e := range in {
		out = append(out, eventFromWire(e))
	}
	return out
}
