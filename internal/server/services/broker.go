package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
)

// DefaultSubscriberBuffer is the number of undelivered events a subscriber
// may lag behind before it is dropped.
const DefaultSubscriberBuffer = 64

// TaggedEvent is an event together with the folder it lands in for the
// receiving subscriber.
type TaggedEvent struct {
	Event  models.MailEvent
	Folder models.Folder
}

type subscriber struct {
	address string
	ch      chan TaggedEvent
}

// Broker fans newly mined events out to live subscribers. A mail to self
// is delivered twice, once per folder.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	next   uint64
	buffer int
	logger logging.Logger
}

// NewBroker returns a broker whose subscribers may lag buffer events
// behind; a non-positive buffer selects DefaultSubscriberBuffer.
func NewBroker(buffer int, logger logging.Logger) *Broker {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broker{subs: make(map[uint64]*subscriber), buffer: buffer, logger: logger.With("module", "broker")}
}

// Subscribe registers address. The returned channel is closed by cancel,
// or by the broker when the subscriber falls too far behind.
func (b *Broker) Subscribe(address string) (<-chan TaggedEvent, func()) {
	sub := &subscriber{address: address, ch: make(chan TaggedEvent, b.buffer)}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.drop(id) })
	}
	return sub.ch, cancel
}

func (b *Broker) drop(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers ev to the sender's and the recipient's subscribers.
func (b *Broker) Publish(ctx context.Context, ev models.MailEvent) {
	var slow []uint64

	b.mu.RLock()
	for id, sub := range b.subs {
		for _, folder := range foldersOf(sub.address, ev) {
			select {
			case sub.ch <- TaggedEvent{Event: ev, Folder: folder}:
			default:
				slow = append(slow, id)
			}
		}
	}
	b.mu.RUnlock()

	for _, id := range slow {
		b.logger.Warn(ctx, "dropping slow subscriber", "block", ev.BlockNumber)
		b.drop(id)
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func foldersOf(address string, ev models.MailEvent) []models.Folder {
	var out []models.Folder
	if cryptox.SameAddress(ev.ToAddress, address) {
		out = append(out, models.FolderInbox)
	}
	if cryptox.SameAddress(ev.FromAddress, address) {
		out = append(out, models.FolderOutbox)
	}
	return out
}
