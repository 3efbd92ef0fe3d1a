package datasets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// legacyResourcesKey is the fixed hash the prior system kept its dataset
// registry under.
const legacyResourcesKey = "resources"

// LegacyStore reads the prior system's key-value dataset registry.
type LegacyStore struct {
	client *redis.Client
}

// NewLegacyStore connects to the legacy store and verifies reachability.
func NewLegacyStore(redisURL string) (*LegacyStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to legacy store: %w", err)
	}
	return &LegacyStore{client: client}, nil
}

// NewLegacyStoreFromClient wraps an existing client; used by tests.
func NewLegacyStoreFromClient(client *redis.Client) *LegacyStore {
	return &LegacyStore{client: client}
}

// Close releases the underlying client.
func (s *LegacyStore) Close() error {
	return s.client.Close()
}

// Resources reads the full legacy resource set. Entries that fail to decode
// are skipped rather than aborting the read; the registry historically held
// a few non-dataset records under the same hash.
func (s *LegacyStore) Resources(ctx context.Context) ([]LegacyRecord, error) {
	entries, err := s.client.HGetAll(ctx, legacyResourcesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy resources: %w", err)
	}
	records := make([]LegacyRecord, 0, len(entries))
	for _, raw := range entries {
		var record LegacyRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ResourcesOwnedBy filters the legacy resource set down to records owned by
// the given user id.
func (s *LegacyStore) ResourcesOwnedBy(ctx context.Context, ownerID string) ([]LegacyRecord, error) {
	records, err := s.Resources(ctx)
	if err != nil {
		return nil, err
	}
	owned := records[:0]
	for _, record := range records {
		if record.OwnerID == ownerID {
			owned = append(owned, record)
		}
	}
	return owned, nil
}
