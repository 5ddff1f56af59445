package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salesdash/authkit/pkg/kvstore"
)

// Key prefixes follow the shared store schema. The csrf prefix is owned by
// the csrf package; the session scripts delete bindings under it so a
// session's token dies in the same atomic step as the session itself.
const (
	sessionKeyPrefix = "session:"
	indexKeyPrefix   = "session_index:"
	csrfKeyPrefix    = "csrf:"
)

// saveScript stores the sealed record, admits the session into the user's
// index scored by creation time, and evicts the oldest sessions past the
// ceiling. One script run keeps record and index consistent under
// concurrent creation from multiple workers.
//
// KEYS[1] session key, KEYS[2] index key
// ARGV: payload, ttl_ms, session_id, created_score, max_sessions,
// session_prefix, csrf_prefix
const saveScript = `
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[4], ARGV[3])
redis.call("PEXPIRE", KEYS[2], ARGV[2])
local evicted = {}
local over = redis.call("ZCARD", KEYS[2]) - tonumber(ARGV[5])
if over > 0 then
  -- Fetch one extra candidate: the new session can tie on score with the
  -- oldest entries and must be skipped without leaving the index over the
  -- ceiling.
  local oldest = redis.call("ZRANGE", KEYS[2], 0, over)
  for _, sid in ipairs(oldest) do
    if over > 0 and sid ~= ARGV[3] then
      redis.call("DEL", ARGV[6] .. sid, ARGV[7] .. sid)
      redis.call("ZREM", KEYS[2], sid)
      table.insert(evicted, sid)
      over = over - 1
    end
  end
end
return evicted
`

// extendScript rewrites the payload with a fresh TTL only while the session
// key still exists. Renewal racing a revocation must never resurrect the
// record.
//
// KEYS[1] session key; ARGV: payload, ttl_ms
const extendScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  return 1
end
return 0
`

// revokeScript deletes the record, its index entry and its csrf binding in
// one step.
//
// KEYS[1] session key, KEYS[2] index key, KEYS[3] csrf key; ARGV: session_id
const revokeScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
redis.call("DEL", KEYS[3])
return existed
`

// revokeAllScript deletes every session in the index, their csrf bindings
// and the index itself.
//
// KEYS[1] index key; ARGV: session_prefix, csrf_prefix
const revokeAllScript = `
local ids = redis.call("ZRANGE", KEYS[1], 0, -1)
for _, sid in ipairs(ids) do
  redis.call("DEL", ARGV[1] .. sid, ARGV[2] .. sid)
end
redis.call("DEL", KEYS[1])
return #ids
`

var (
	saveLua      = redis.NewScript(saveScript)
	extendLua    = redis.NewScript(extendScript)
	revokeLua    = redis.NewScript(revokeScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// RedisStore is the shared-store implementation of Store.
type RedisStore struct {
	client *kvstore.Client
}

// NewRedisStore creates a session store backed by the shared store client.
func NewRedisStore(client *kvstore.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func indexKey(userID string) string {
	return indexKeyPrefix + userID
}

func (s *RedisStore) Save(ctx context.Context, id, userID string, payload []byte, createdAt time.Time, ttl time.Duration, maxSessions int) ([]string, error) {
	res, err := s.client.RunScript(ctx, saveLua,
		[]string{sessionKey(id), indexKey(userID)},
		payload, ttl.Milliseconds(), id, createdAt.UnixNano(), maxSessions, sessionKeyPrefix, csrfKeyPrefix,
	)
	if err != nil {
		return nil, err
	}

	raw, ok := res.([]any)
	if !ok {
		return nil, nil
	}

	evicted := make([]string, 0, len(raw))
	for _, v := range raw {
		if sid, ok := v.(string); ok {
			evicted = append(evicted, sid)
		}
	}
	return evicted, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) ([]byte, error) {
	return s.client.Get(ctx, sessionKey(id))
}

func (s *RedisStore) Extend(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	_, err := s.client.RunScript(ctx, extendLua,
		[]string{sessionKey(id)},
		payload, ttl.Milliseconds(),
	)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id, userID string) error {
	if userID == "" {
		return s.client.Delete(ctx, sessionKey(id), csrfKeyPrefix+id)
	}

	_, err := s.client.RunScript(ctx, revokeLua,
		[]string{sessionKey(id), indexKey(userID), csrfKeyPrefix + id},
		id,
	)
	return err
}

func (s *RedisStore) UserSessions(ctx context.Context, userID string) ([]string, error) {
	return s.client.SetMembers(ctx, indexKey(userID))
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.client.RunScript(ctx, revokeAllLua,
		[]string{indexKey(userID)},
		sessionKeyPrefix, csrfKeyPrefix,
	)
	if err != nil {
		return 0, err
	}

	count, _ := res.(int64)
	return int(count), nil
}
