package notifier

import (
	"sync"
	"time"
)

// CooldownManager throttles raid reports per guild. During a long raid every
// further join triggers its own small action pass; only the first report in
// each cooldown period is posted and the rest are folded into the next one.
type CooldownManager struct {
	mu         sync.Mutex
	lastSent   map[string]time.Time
	suppressed map[string]int
	duration   time.Duration
}

func NewCooldownManager(duration time.Duration) *CooldownManager {
	return &CooldownManager{
		lastSent:   make(map[string]time.Time),
		suppressed: make(map[string]int),
		duration:   duration,
	}
}

// Acquire reports whether a report for guildID may be sent at now. On
// success it returns how many actioned members were suppressed since the
// previous report and resets that count.
func (cm *CooldownManager) Acquire(guildID string, actioned int, now time.Time) (bool, int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if last, exists := cm.lastSent[guildID]; exists && now.Sub(last) < cm.duration {
		cm.suppressed[guildID] += actioned
		return false, 0
	}

	cm.lastSent[guildID] = now
	folded := cm.suppressed[guildID]
	delete(cm.suppressed, guildID)
	return true, folded
}

func (cm *CooldownManager) GetRemainingCooldown(guildID string, now time.Time) time.Duration {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	last, exists := cm.lastSent[guildID]
	if !exists {
		return 0
	}

	remaining := cm.duration - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}
