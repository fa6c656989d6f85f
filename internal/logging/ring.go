package logging

import "sync"

// ringSize is the number of recent entries retained for incident dossiers.
const ringSize = 200

var (
	ringMu  sync.Mutex
	ring    [ringSize]string
	ringPos int
	ringLen int
)

// record appends an entry to the in-memory ring. Always active so case
// files get an excerpt even in production mode.
func record(entry string) {
	ringMu.Lock()
	ring[ringPos] = entry
	ringPos = (ringPos + 1) % ringSize
	if ringLen < ringSize {
		ringLen++
	}
	ringMu.Unlock()
}

// Recent returns up to n of the most recent log entries, oldest first.
func Recent(n int) []string {
	ringMu.Lock()
	defer ringMu.Unlock()

	if n > ringLen {
		n = ringLen
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	start := (ringPos - n + ringSize) % ringSize
	for i := 0; i < n; i++ {
		out = append(out, ring[(start+i)%ringSize])
	}
	return out
}

// ResetRing clears the recent-entry ring. Intended for tests.
func ResetRing() {
	ringMu.Lock()
	ring = [ringSize]string{}
	ringPos = 0
	ringLen = 0
	ringMu.Unlock()
}
