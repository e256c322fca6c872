package history

import "time"

// CleanupInterval is how often expired records are deleted.
const CleanupInterval = 1 * time.Hour

// RunCleanupLoop runs cleanupFn immediately and then every CleanupInterval
// until stop is closed.
func RunCleanupLoop(stop <-chan struct{}, cleanupFn func()) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	cleanupFn()

	for {
		select {
		case <-ticker.C:
			cleanupFn()
		case <-stop:
			return
		}
	}
}
