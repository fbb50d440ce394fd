package redis

import (
	"context"
	"fmt"
	"time"

	"lodge-ops/internal/logger"

	"github.com/go-redis/redis/v8"
)

const defaultSaveLockTTL = 30 * time.Second

// releaseScript deletes the lock only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis holds the per-event save markers and the reviewed-member set.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultSaveLockTTL
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Redis{Client: client, TTL: ttl, Logger: log}
}

func saveKey(eventID string) string {
	return "session_save:" + eventID
}

// AcquireSave marks a save of the event's session as in flight. It returns
// false when another save holds the marker. The marker expires after TTL so
// a crashed save cannot block the session forever.
func (r *Redis) AcquireSave(ctx context.Context, eventID, token string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, saveKey(eventID), token, r.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire save marker for %s: %w", eventID, err)
	}
	if !ok {
		r.Logger.Warn("REDIS", fmt.Sprintf("Save already in flight for event %s", eventID))
	}
	return ok, nil
}

// ReleaseSave clears the marker if it is still owned by token.
func (r *Redis) ReleaseSave(ctx context.Context, eventID, token string) error {
	if err := releaseScript.Run(ctx, r.Client, []string{saveKey(eventID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release save marker for %s: %w", eventID, err)
	}
	return nil
}
