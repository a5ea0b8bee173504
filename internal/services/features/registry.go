package features

import (
	"sync"

	"DexPilot/internal/domain/models"
)

// WindowRegistry holds one snapshot window per venue/pair. The feed pipeline
// writes, decision cycles read.
type WindowRegistry struct {
	mu       sync.RWMutex
	capacity int
	windows  map[string]*SnapshotWindow
}

// NewWindowRegistry creates a registry whose windows hold capacity snapshots.
func NewWindowRegistry(capacity int) *WindowRegistry {
	return &WindowRegistry{
		capacity: capacity,
		windows:  make(map[string]*SnapshotWindow),
	}
}

// WindowKey is the registry key for a venue/pair.
func WindowKey(venue, pair string) string { return venue + ":" + pair }

// Ingest pushes a snapshot into its pair's window, creating it on first sight.
func (r *WindowRegistry) Ingest(s *models.MarketSnapshot) {
	if s == nil {
		return
	}
	r.Window(WindowKey(s.Venue, s.Pair)).Push(s)
}

// Window returns the window for key, creating an empty one if absent.
func (r *WindowRegistry) Window(key string) *SnapshotWindow {
	r.mu.RLock()
	w, ok := r.windows[key]
	r.mu.RUnlock()
	if ok {
		return w
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok = r.windows[key]; ok {
		return w
	}
	w = NewSnapshotWindow(r.capacity)
	r.windows[key] = w
	return w
}
