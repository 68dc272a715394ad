// internal/ledger/redis.go
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/javajoker/storyline-backend/internal/models"
)

// RedisStore keeps each unlock as a JSON value written with SET NX, plus a
// per-user sorted set and a per-book set for listing and a stats hash. One
// script writes the value and its index entries together.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    Clock
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) WithClock(now Clock) *RedisStore {
	s.now = now
	return s
}

func (s *RedisStore) recordKey(key string) string  { return s.prefix + ":unlock:" + key }
func (s *RedisStore) userKey(user string) string   { return s.prefix + ":unlock:user:" + user }
func (s *RedisStore) bookKey(bookID string) string { return s.prefix + ":unlock:book:" + bookID }
func (s *RedisStore) statsKey() string             { return s.prefix + ":unlock:stats" }
func (s *RedisStore) usersKey() string             { return s.prefix + ":unlock:users" }
func (s *RedisStore) countedKey() string           { return s.prefix + ":unlock:counted" }

func (s *RedisStore) RecordUnlock(ctx context.Context, userAddress, bookID string, chapterNumber int, proofRef string, isFree bool) (*models.UnlockRecord, bool, error) {
	if err := validateKey(userAddress, bookID, chapterNumber); err != nil {
		return nil, false, err
	}

	record := &models.UnlockRecord{
		ID:             uuid.New(),
		UserAddress:    models.NormalizeAddress(userAddress),
		BookID:         bookID,
		ChapterNumber:  chapterNumber,
		UnlockedAt:     s.now().UTC(),
		ProofReference: proofRef,
		IsFree:         isFree,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode unlock: %w", err)
	}

	key := record.Key()
	created, err := recordUnlockScript.Run(ctx, s.client, s.indexKeys(record), s.indexArgs(record, payload)...).Int()
	if err != nil {
		return nil, false, fmt.Errorf("failed to record unlock: %w", err)
	}
	if created == 1 {
		return record, true, nil
	}

	existing, err := s.load(ctx, key)
	if err != nil {
		return nil, false, err
	}
	// Re-index in case a record was stored without its index entries.
	if err := indexUnlockScript.Run(ctx, s.client, s.indexKeys(existing), s.indexArgs(existing, nil)...).Err(); err != nil {
		return nil, false, fmt.Errorf("failed to index unlock: %w", err)
	}
	return existing, false, nil
}

// indexUnlockBody adds a record to every listing and counts it once. The
// counted set gates the stats counters so re-indexing never double counts.
const indexUnlockBody = `
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
redis.call('SADD', KEYS[3], ARGV[2])
redis.call('SADD', KEYS[4], ARGV[3])
if redis.call('SADD', KEYS[6], ARGV[2]) == 1 then
  redis.call('HINCRBY', KEYS[5], 'total', 1)
  redis.call('HINCRBY', KEYS[5], ARGV[4], 1)
end
`

var (
	recordUnlockScript = redis.NewScript(`
if not redis.call('SET', KEYS[1], ARGV[5], 'NX') then
  return 0
end
` + indexUnlockBody + `
return 1
`)
	indexUnlockScript = redis.NewScript(indexUnlockBody + `
return 1
`)
)

func (s *RedisStore) indexKeys(record *models.UnlockRecord) []string {
	return []string{
		s.recordKey(record.Key()),
		s.userKey(record.UserAddress),
		s.bookKey(record.BookID),
		s.usersKey(),
		s.statsKey(),
		s.countedKey(),
	}
}

func (s *RedisStore) indexArgs(record *models.UnlockRecord, payload []byte) []interface{} {
	kind := "paid"
	if record.IsFree {
		kind = "free"
	}
	return []interface{}{
		strconv.FormatInt(record.UnlockedAt.UnixNano(), 10),
		record.Key(),
		record.UserAddress,
		kind,
		string(payload),
	}
}

func (s *RedisStore) HasUnlocked(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error) {
	n, err := s.client.Exists(ctx, s.recordKey(models.UnlockKey(userAddress, bookID, chapterNumber))).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userAddress string) ([]models.UnlockRecord, error) {
	keys, err := s.client.ZRevRange(ctx, s.userKey(models.NormalizeAddress(userAddress)), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	records, err := s.loadAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	sortByUnlockedDesc(records)
	return records, nil
}

func (s *RedisStore) ListByBook(ctx context.Context, bookID string) ([]models.UnlockRecord, error) {
	keys, err := s.client.SMembers(ctx, s.bookKey(bookID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	records, err := s.loadAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	sortByChapter(records)
	return records, nil
}

func (s *RedisStore) Stats(ctx context.Context) (models.UnlockStats, error) {
	var stats models.UnlockStats
	counters, err := s.client.HGetAll(ctx, s.statsKey()).Result()
	if err != nil {
		return stats, fmt.Errorf("failed to read unlock stats: %w", err)
	}
	stats.Total = parseCounter(counters["total"])
	stats.Free = parseCounter(counters["free"])
	stats.Paid = parseCounter(counters["paid"])

	users, err := s.client.SCard(ctx, s.usersKey()).Result()
	if err != nil {
		return stats, fmt.Errorf("failed to count unlock users: %w", err)
	}
	stats.UniqueUsers = users
	return stats, nil
}

func (s *RedisStore) load(ctx context.Context, key string) (*models.UnlockRecord, error) {
	raw, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load unlock %s: %w", key, err)
	}
	var record models.UnlockRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode unlock %s: %w", key, err)
	}
	return &record, nil
}

func (s *RedisStore) loadAll(ctx context.Context, keys []string) ([]models.UnlockRecord, error) {
	records := make([]models.UnlockRecord, 0, len(keys))
	if len(keys) == 0 {
		return records, nil
	}

	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = s.recordKey(k)
	}
	values, err := s.client.MGet(ctx, fullKeys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load unlocks: %w", err)
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var record models.UnlockRecord
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, fmt.Errorf("failed to decode unlock: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseCounter(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
