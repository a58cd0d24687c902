package classifier

import (
	"sync"
	"time"

	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

// slot is one rotating unit of external-service quota.
type slot struct {
	key          string
	coolingUntil time.Time
}

// KeyPool hands out API keys round-robin and parks rate-limited keys for a
// cooldown window. All slot state is guarded by one mutex so concurrent
// classifications can never both claim a just-recovered slot or lose a
// cooldown stamp.
type KeyPool struct {
	mu       sync.Mutex
	slots    []*slot
	next     int
	cooldown time.Duration
	now      func() time.Time
}

// NewKeyPool builds a pool over the given keys. At least one key is
// required; cooldown must be positive.
func NewKeyPool(keys []string, cooldown time.Duration) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, types.NewAppError(types.ErrConfig, "no API keys configured", nil)
	}
	if cooldown <= 0 {
		return nil, types.NewAppError(types.ErrConfig, "key cooldown must be positive", nil)
	}

	slots := make([]*slot, 0, len(keys))
	for _, k := range keys {
		slots = append(slots, &slot{key: k})
	}

	logger.Info("key pool initialized",
		logger.Int("slots", len(slots)),
		logger.Float64("cooldownSeconds", cooldown.Seconds()))

	return &KeyPool{
		slots:    slots,
		cooldown: cooldown,
		now:      time.Now,
	}, nil
}

// Size returns the total number of slots.
func (p *KeyPool) Size() int {
	return len(p.slots)
}

// Available returns the number of slots not currently cooling down.
func (p *KeyPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := 0
	for _, s := range p.slots {
		if !s.coolingUntil.After(now) {
			n++
		}
	}
	return n
}

// Acquire returns the next usable key, skipping cooling slots. Elapsed
// cooldowns are cleared in passing. When every slot is cooling down it
// fails fast with ALL_SLOTS_EXHAUSTED rather than blocking.
func (p *KeyPool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 0; i < len(p.slots); i++ {
		s := p.slots[p.next]
		p.next = (p.next + 1) % len(p.slots)

		if s.coolingUntil.After(now) {
			continue
		}
		s.coolingUntil = time.Time{}
		return s.key, nil
	}

	logger.Warn("all key slots cooling down", logger.Int("slots", len(p.slots)))
	return "", types.NewAppError(types.ErrAllSlotsExhausted, "all API key slots are cooling down", nil)
}

// MarkRateLimited stamps the slot holding key as cooling until
// now+cooldown. Unknown keys are ignored.
func (p *KeyPool) MarkRateLimited(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s.key == key {
			s.coolingUntil = p.now().Add(p.cooldown)
			logger.Warn("key slot rate limited",
				logger.Int("available", p.availableLocked()),
				logger.Float64("cooldownSeconds", p.cooldown.Seconds()))
			return
		}
	}
}

// MarkSuccess clears any cooldown on the slot holding key, returning it to
// rotation immediately.
func (p *KeyPool) MarkSuccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s.key == key {
			s.coolingUntil = time.Time{}
			return
		}
	}
}

// availableLocked counts usable slots; caller must hold p.mu.
func (p *KeyPool) availableLocked() int {
	now := p.now()
	n := 0
	for _, s := range p.slots {
		if !s.coolingUntil.After(now) {
			n++
		}
	}
	return n
}
