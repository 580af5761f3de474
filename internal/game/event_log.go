package game

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Pending events before the oldest are dropped
	MaxEventsPerSec      = 5000                   // Global rate limit
	MaxEventsPerPlayer   = 50                     // Per-entity rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	PlayerLimiterCleanup = 5 * time.Minute        // Cleanup interval for entity limiters
)

// EventLog is a bounded, rate-limited JSONL journal shared by every room.
// A nil *EventLog accepts and discards events.
type EventLog struct {
	mu      sync.Mutex
	pending []Event
	seq     uint64

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out    io.Writer
	closer io.Closer

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		pending:       make([]Event, 0, BatchFlushSize),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer
func (el *EventLog) Start(filePath string) error {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	el.closer = file
	el.StartWriter(file)
	return nil
}

// StartWriter begins the async writer against an arbitrary sink
func (el *EventLog) StartWriter(w io.Writer) {
	if el.running.Load() {
		return
	}
	el.out = w
	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
}

// Stop flushes what is pending and closes the file
func (el *EventLog) Stop() {
	if el == nil {
		return
	}
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()
		if el.closer != nil {
			el.closer.Close()
		}
	})
}

// Emit queues an event. Returns false if rate limited or not running.
func (el *EventLog) Emit(event Event) bool {
	if el == nil || !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if event.PlayerID != "" && !el.playerLimiter(event.PlayerID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	el.seq++
	event.Sequence = el.seq
	if len(el.pending) >= EventBufferSize {
		// Rolling window: the oldest event goes
		el.pending = el.pending[1:]
		el.droppedCount.Add(1)
	}
	el.pending = append(el.pending, event)
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple builds and queues an event
func (el *EventLog) EmitSimple(eventType EventType, roomID string, tick uint64, playerID string, payload interface{}) bool {
	if el == nil {
		return false
	}
	return el.Emit(NewEvent(eventType, roomID, tick, playerID, payload))
}

func (el *EventLog) playerLimiter(playerID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.playerLimiters.Load(playerID); ok {
		e := entry.(*playerLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &playerLimiterEntry{limiter: rate.NewLimiter(MaxEventsPerPlayer, MaxEventsPerPlayer/5)}
	entry.lastUsed.Store(now)
	actual, _ := el.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			for el.flush() > 0 {
			}
			return
		case <-ticker.C:
			el.flush()
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(PlayerLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupPlayerLimiters()
		}
	}
}

func (el *EventLog) cleanupPlayerLimiters() {
	cutoff := time.Now().Add(-PlayerLimiterCleanup).UnixNano()
	el.playerLimiters.Range(func(key, value interface{}) bool {
		if value.(*playerLimiterEntry).lastUsed.Load() < cutoff {
			el.playerLimiters.Delete(key)
		}
		return true
	})
}

// flush writes up to one batch and returns how many events it wrote.
func (el *EventLog) flush() int {
	el.mu.Lock()
	n := len(el.pending)
	if n > BatchFlushSize {
		n = BatchFlushSize
	}
	batch := make([]Event, n)
	copy(batch, el.pending[:n])
	el.pending = el.pending[n:]
	el.mu.Unlock()

	if n == 0 || el.out == nil {
		return n
	}
	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			el.droppedCount.Add(1)
		}
	}
	return n
}

// Stats returns counters for monitoring
func (el *EventLog) Stats() map[string]interface{} {
	if el == nil {
		return map[string]interface{}{"running": false}
	}
	el.mu.Lock()
	pending := len(el.pending)
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// DroppedCount returns the number of dropped events
func (el *EventLog) DroppedCount() uint64 {
	if el == nil {
		return 0
	}
	return el.droppedCount.Load()
}
