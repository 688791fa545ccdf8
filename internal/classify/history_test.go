package classify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/monban/internal/model"
)

func record(userID string, level int) model.ClassificationRecord {
	return model.ClassificationRecord{
		UserID:     userID,
		Text:       fmt.Sprintf("issue at level %d", level),
		Level:      level,
		Confidence: 0.8,
		RecordedAt: time.Now().UTC(),
	}
}

func TestHistoryRecordAndFetch(t *testing.T) {
	h := NewHistory(20)

	h.Record(record("u1", 2))
	h.Record(record("u1", 3))
	h.Record(record("u2", 5))

	u1 := h.ForUser("u1")
	require.Len(t, u1, 2)
	assert.Equal(t, 2, u1[0].Level, "records come back oldest first")
	assert.Equal(t, 3, u1[1].Level)

	assert.Equal(t, 1, h.Len("u2"))
	assert.Empty(t, h.ForUser("unknown"))
}

func TestHistoryFIFOCap(t *testing.T) {
	h := NewHistory(3)

	for lvl := 1; lvl <= 5; lvl++ {
		h.Record(record("u1", lvl))
	}

	records := h.ForUser("u1")
	require.Len(t, records, 3)
	// Levels 1 and 2 were evicted.
	assert.Equal(t, 3, records[0].Level)
	assert.Equal(t, 5, records[2].Level)
}

func TestHistoryCapIsPerUser(t *testing.T) {
	h := NewHistory(2)

	h.Record(record("a", 1))
	h.Record(record("a", 2))
	h.Record(record("b", 3))

	assert.Equal(t, 2, h.Len("a"))
	assert.Equal(t, 1, h.Len("b"), "one user filling up must not evict another's records")
}

func TestHistoryDefaultLimit(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 30; i++ {
		h.Record(record("u1", 1))
	}
	assert.Equal(t, 20, h.Len("u1"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	h := NewHistory(5)
	h.Record(record("u1", 4))

	got := h.ForUser("u1")
	got[0].Level = 1

	assert.Equal(t, 4, h.ForUser("u1")[0].Level, "mutating the returned slice must not affect stored records")
}

func TestHistoryConcurrentRecord(t *testing.T) {
	h := NewHistory(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				h.Record(record("shared", j%5+1))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, h.Len("shared"))
}
