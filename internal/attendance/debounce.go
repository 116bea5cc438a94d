package attendance

import (
	"sync"
	"time"
)

const debouncePruneSize = 1024

// Debouncer drops a repeat of the same scan inside a short window, the way
// stations debounce a code that stays in front of the camera. It only saves
// round-trips; Store.Apply is what keeps slots write-once.
type Debouncer struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDebouncer creates a debouncer. A zero window disables it.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now, seen: make(map[string]time.Time)}
}

// Allow reports whether a scan with key should be processed and remembers it.
func (d *Debouncer) Allow(key string) bool {
	if d.window <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if len(d.seen) >= debouncePruneSize {
		for k, at := range d.seen {
			if now.Sub(at) >= d.window {
				delete(d.seen, k)
			}
		}
	}
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	return true
}

// DebounceKey identifies a scan for debouncing.
func DebounceKey(station string, scan Scan) string {
	return station + "|" + SanitizeCode(scan.Code) + "|" + string(scan.Session)
}
