package dispatch

import (
	"fmt"
	"sync"
	"time"
)

const dedupCap = 1000

// Limiter owns the dedup sets and cooldown maps shared by both dispatchers.
// It is constructed at process start and cleared at shutdown; handlers for
// many bots touch it concurrently.
type Limiter struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
	cap       int

	commandUse map[string]time.Time
	chatReply  map[int64]time.Time

	now func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		seen:       map[string]struct{}{},
		cap:        dedupCap,
		commandUse: map[string]time.Time{},
		chatReply:  map[int64]time.Time{},
		now:        time.Now,
	}
}

// SeenOnce records key in the dedup set and reports whether this was its
// first occurrence. The set is capped; the oldest entries are pruned first.
func (l *Limiter) SeenOnce(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	l.seenOrder = append(l.seenOrder, key)
	for len(l.seen) > l.cap && len(l.seenOrder) > 0 {
		oldest := l.seenOrder[0]
		l.seenOrder = l.seenOrder[1:]
		delete(l.seen, oldest)
	}
	return true
}

// MessageKey identifies one message delivery for dedup.
func MessageKey(chatID, userID int64, messageID int) string {
	return fmt.Sprintf("msg|%d|%d|%d", chatID, userID, messageID)
}

// CommandKey identifies one command invocation for dedup, bucketed to the
// second so the same duplicate delivery collapses while a deliberate repeat
// a moment later does not.
func (l *Limiter) CommandKey(chatID, userID int64, text string) string {
	return fmt.Sprintf("cmd|%d|%d|%s|%d", chatID, userID, text, l.now().Unix())
}

// CommandCooldown returns the remaining wait before userID may run trigger
// again, or zero when the command is available.
func (l *Limiter) CommandCooldown(userID int64, trigger string, cooldown time.Duration) time.Duration {
	if cooldown <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.commandUse[commandUseKey(userID, trigger)]
	if !ok {
		return 0
	}
	elapsed := l.now().Sub(last)
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// TouchCommand records that userID ran trigger now.
func (l *Limiter) TouchCommand(userID int64, trigger string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commandUse[commandUseKey(userID, trigger)] = l.now()
}

// ChatCoolingDown reports whether less than cooldown has elapsed since the
// last response sent to chatID.
func (l *Limiter) ChatCoolingDown(chatID int64, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.chatReply[chatID]
	if !ok {
		return false
	}
	return l.now().Sub(last) < cooldown
}

// TouchChat refreshes the per-chat cooldown timestamp after a reply was sent.
func (l *Limiter) TouchChat(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chatReply[chatID] = l.now()
}

// Reset clears all dedup and cooldown state.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = map[string]struct{}{}
	l.seenOrder = nil
	l.commandUse = map[string]time.Time{}
	l.chatReply = map[int64]time.Time{}
}

func commandUseKey(userID int64, trigger string) string {
	return fmt.Sprintf("%d|%s", userID, trigger)
}
