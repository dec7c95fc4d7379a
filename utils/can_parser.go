package utils

import (
	"sync"
	"time"

	"go.einride.tech/can"
)

// StaleAfterCycles is how many missed cycles of a message make its cached
// values expire.
const StaleAfterCycles = 10

// defaultMaxAge applies to messages without a cycle time in the dictionary.
const defaultMaxAge = time.Second

// SignalCache keeps the latest decoded value of every signal received on a
// bus, keyed by message name and then signal name. Only RX frames of the
// dictionary are tracked; anything else is ignored.
//
// A received message expires StaleAfterCycles cycles after its last frame
// and is then left out of snapshots. Seeded defaults never expire; they stand
// in whenever the message has no fresh frame.
//
// The cache is filled from a receive goroutine and read once per control
// tick, so it is the one place that locks.
type SignalCache struct {
	cmap *CANMap
	now  func() time.Time

	mu       sync.Mutex
	values   map[string]map[string]float64
	received map[string]time.Time
	seeded   map[string]map[string]float64
	counts   map[string]uint64
}

func NewSignalCache(cmap *CANMap) *SignalCache {
	return &SignalCache{
		cmap:     cmap,
		now:      time.Now,
		values:   map[string]map[string]float64{},
		received: map[string]time.Time{},
		seeded:   map[string]map[string]float64{},
		counts:   map[string]uint64{},
	}
}

// SetClock replaces the time source used for receive stamps and expiry.
func (c *SignalCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Seed registers the dictionary defaults of a message so that it is present
// even if the vehicle never sends it. Used for variant-optional groups.
func (c *SignalCache) Seed(frameName string) error {
	fd, err := c.cmap.FrameByName(frameName)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeded[fd.Name] = fd.Defaults()
	return nil
}

// Update decodes f into the cache. It reports false for frames that are not
// RX messages of the dictionary.
func (c *SignalCache) Update(f can.Frame) (bool, error) {
	fd, ok := c.cmap.ByID[f.ID]
	if !ok || fd.Direction == DirectionTX {
		return false, nil
	}
	vals, err := c.cmap.DecodeFrame(f.ID, f.Data[:f.Length])
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[fd.Name] = vals
	c.received[fd.Name] = c.now()
	c.counts[fd.Name]++
	return true, nil
}

// MaxAge is how long a received message stays valid without a new frame.
func MaxAge(fd *FrameDef) time.Duration {
	if fd == nil || fd.CycleMS <= 0 {
		return defaultMaxAge
	}
	return StaleAfterCycles * time.Duration(fd.CycleMS) * time.Millisecond
}

// Snapshot returns a deep copy of the values that are still fresh, with
// seeded defaults filling in for messages that are not.
func (c *SignalCache) Snapshot() map[string]map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]map[string]float64, len(c.values)+len(c.seeded))
	for msg, sigs := range c.values {
		if now.Sub(c.received[msg]) > MaxAge(c.cmap.ByName[msg]) {
			continue
		}
		out[msg] = copySignals(sigs)
	}
	for msg, sigs := range c.seeded {
		if _, ok := out[msg]; !ok {
			out[msg] = copySignals(sigs)
		}
	}
	return out
}

func copySignals(sigs map[string]float64) map[string]float64 {
	cp := make(map[string]float64, len(sigs))
	for k, v := range sigs {
		cp[k] = v
	}
	return cp
}

// Count is the number of frames received for a message.
func (c *SignalCache) Count(frameName string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[frameName]
}
