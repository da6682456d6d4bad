// Package webhooklog keeps a short, capped history of voice-agent webhook
// calls for the operator dashboard. Entries never hold full phone numbers.
package webhooklog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultCapacity matches what the dashboard shows.
const DefaultCapacity = 100

// Entry records one handled webhook action.
type Entry struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	RequestID  string    `json:"request_id,omitempty"`
	Caller     string    `json:"caller,omitempty"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// Log appends entries and lists the newest first.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

func stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return e
}

// Memory is a process-local ring.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// NewMemory returns a ring holding at most capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{capacity: capacity}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]Entry{stamp(e)}, m.entries...)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[:m.capacity]
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]Entry(nil), m.entries[:limit]...), nil
}

// Redis shares the history between server instances in a capped list.
type Redis struct {
	client   redis.UniversalClient
	key      string
	capacity int
}

// NewRedis stores entries under key.
func NewRedis(client redis.UniversalClient, key string, capacity int) *Redis {
	if key == "" {
		key = "booking:webhook:log"
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Redis{client: client, key: key, capacity: capacity}
}

func (r *Redis) Append(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(stamp(e))
	if err != nil {
		return fmt.Errorf("webhooklog: encode: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, payload)
	pipe.LTrim(ctx, r.key, 0, int64(r.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("webhooklog: append: %w", err)
	}
	return nil
}

func (r *Redis) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > r.capacity {
		limit = r.capacity
	}
	raw, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("webhooklog: list: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
