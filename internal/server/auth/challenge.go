package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/google/uuid"
)

const nonceSize = 32

type challenge struct {
	address string
	nonce   []byte
	expires time.Time
}

// Challenges holds outstanding login challenges. Each challenge can be
// answered once.
type Challenges struct {
	mu      sync.Mutex
	pending map[string]challenge
	ttl     time.Duration
	now     func() time.Time
}

// NewChallenges returns an empty set whose challenges expire after ttl.
func NewChallenges(ttl time.Duration) *Challenges {
	return &Challenges{pending: make(map[string]challenge), ttl: ttl, now: time.Now}
}

// Issue creates a random nonce for address and seals it to publicKey. Only
// the holder of the matching private key can return the nonce.
func (c *Challenges) Issue(address string, publicKey *[32]byte) (id, sealed string, err error) {
	nonce := common.GenerateRandByteArray(nonceSize)

	sealed, err = cryptox.Seal(nonce, publicKey)
	if err != nil {
		return "", "", fmt.Errorf("seal challenge: %w", err)
	}

	id = uuid.NewString()
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gc(now)
	c.pending[id] = challenge{address: address, nonce: nonce, expires: now.Add(c.ttl)}

	return id, sealed, nil
}

// Verify consumes challenge id and checks that answer is the base64 nonce
// issued to address.
func (c *Challenges) Verify(id, address, answer string) error {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok || c.now().After(ch.expires) || !cryptox.SameAddress(ch.address, address) {
		return common.ErrUnauthorized
	}
	defer common.WipeByteArray(ch.nonce)

	got, err := base64.StdEncoding.DecodeString(answer)
	if err != nil {
		return common.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(got, ch.nonce) != 1 {
		return common.ErrUnauthorized
	}
	return nil
}

// Pending reports the number of unanswered challenges.
func (c *Challenges) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Challenges) gc(now time.Time) {
	for id, ch := range c.pending {
		if now.After(ch.expires) {
			common.WipeByteArray(ch.nonce)
			delete(c.pending, id)
		}
	}
}
