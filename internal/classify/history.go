package classify

import (
	"sync"

	"github.com/ashita-ai/monban/internal/model"
)

// History keeps a bounded FIFO of classification records per user.
// When a user's list is full, recording evicts their oldest entry.
// Safe for concurrent use.
type History struct {
	mu     sync.Mutex
	limit  int
	byUser map[string][]model.ClassificationRecord
}

// NewHistory creates a history with the given per-user cap.
// A non-positive limit falls back to 20.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{
		limit:  limit,
		byUser: make(map[string][]model.ClassificationRecord),
	}
}

// Record appends rec to the user's history, evicting the oldest
// entry when the cap is reached.
func (h *History) Record(rec model.ClassificationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := h.byUser[rec.UserID]
	if len(records) >= h.limit {
		records = records[1:]
	}
	h.byUser[rec.UserID] = append(records, rec)
}

// ForUser returns a copy of the user's records, oldest first.
func (h *History) ForUser(userID string) []model.ClassificationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := h.byUser[userID]
	out := make([]model.ClassificationRecord, len(records))
	copy(out, records)
	return out
}

// Len returns the number of records held for the user.
func (h *History) Len(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byUser[userID])
}
