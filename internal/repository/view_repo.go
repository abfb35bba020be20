package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrViewNotFound indicates the view expired, was closed, or never existed.
var ErrViewNotFound = errors.New("view not found")

const viewKeyPrefix = "classroom:view:"

// ViewRepository persists encoded view state keyed by view id.
// Update only writes views that still exist, so a result computed for a
// closed view is dropped instead of resurrecting it.
type ViewRepository interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, payload []byte) error
	Update(ctx context.Context, id string, payload []byte) error
	Delete(ctx context.Context, id string) error
}

type redisViewRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewRepository stores views in Redis; every save refreshes the TTL.
func NewRedisViewRepository(client *redis.Client, ttl time.Duration) ViewRepository {
	return &redisViewRepository{client: client, ttl: ttl}
}

func (r *redisViewRepository) Get(ctx context.Context, id string) ([]byte, error) {
	payload, err := r.client.Get(ctx, viewKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrViewNotFound
		}
		return nil, fmt.Errorf("failed to read view: %w", err)
	}
	return payload, nil
}

func (r *redisViewRepository) Save(ctx context.Context, id string, payload []byte) error {
	if err := r.client.Set(ctx, viewKeyPrefix+id, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store view: %w", err)
	}
	return nil
}

func (r *redisViewRepository) Update(ctx context.Context, id string, payload []byte) error {
	updated, err := r.client.SetXX(ctx, viewKeyPrefix+id, payload, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to update view: %w", err)
	}
	if !updated {
		return ErrViewNotFound
	}
	return nil
}

func (r *redisViewRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, viewKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete view: %w", err)
	}
	if removed == 0 {
		return ErrViewNotFound
	}
	return nil
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

type memoryViewRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryViewRepository keeps views in process memory. Used when no Redis URL is configured.
func NewMemoryViewRepository(ttl time.Duration) ViewRepository {
	return &memoryViewRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *memoryViewRepository) Get(_ context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	if r.expired(entry) {
		delete(r.entries, id)
		return nil, ErrViewNotFound
	}
	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, nil
}

func (r *memoryViewRepository) Save(_ context.Context, id string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store(id, payload)
	return nil
}

func (r *memoryViewRepository) Update(_ context.Context, id string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || r.expired(entry) {
		delete(r.entries, id)
		return ErrViewNotFound
	}
	r.store(id, payload)
	return nil
}

func (r *memoryViewRepository) store(id string, payload []byte) {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	entry := memoryEntry{payload: stored}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.entries[id] = entry
}

func (r *memoryViewRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || r.expired(entry) {
		delete(r.entries, id)
		return ErrViewNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *memoryViewRepository) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt)
}
