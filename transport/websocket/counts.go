package websocket

import "sync"

// channelCounts mirrors the per-channel subscriber counts so endpoints
// like /ws/info can read them without touching the run loop's state.
type channelCounts struct {
	mu     sync.RWMutex
	counts map[string]int
}

func newChannelCounts() *channelCounts {
	return &channelCounts{counts: make(map[string]int)}
}

func (c *channelCounts) set(channel string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		delete(c.counts, channel)
		return
	}
	c.counts[channel] = n
}

func (c *channelCounts) snapshot() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for ch, n := range c.counts {
		out[ch] = n
	}
	return out
}
