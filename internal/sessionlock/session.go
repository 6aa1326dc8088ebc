package sessionlock

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/entitle/internal/config"
	"go.uber.org/zap"
)

const verifyKeyPattern = "checkout:verify:%s"

// Compare-and-delete so a holder never deletes a lock that expired and was
// re-acquired by another request.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// SessionLocker serializes concurrent verifications of the same checkout
// session. The database unique indexes stay authoritative; the lock only
// keeps duplicate requests from doing redundant upstream work. When redis
// is not configured every TryLock succeeds.
type SessionLocker struct {
	enabled bool
	client  *redis.Client
	release *redis.Script
	log     *zap.Logger
}

func NewSessionLocker(cfg config.Config, log *zap.Logger) *SessionLocker {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return &SessionLocker{enabled: false, log: log.Named("sessionlock")}
	}

	return &SessionLocker{
		enabled: true,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(cfg.Redis.Password),
			DB:       cfg.Redis.DB,
		}),
		release: redis.NewScript(releaseScript),
		log:     log.Named("sessionlock"),
	}
}

func (s *SessionLocker) Enabled() bool {
	return s != nil && s.enabled
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf(verifyKeyPattern, strings.TrimSpace(sessionID))
}

// TryLock attempts to take the per-session lock for the policy's TTL. The
// returned token identifies the holder and must be passed to Release.
func (s *SessionLocker) TryLock(ctx context.Context, sessionID string, policy config.ReconcilePolicy) (string, bool) {
	if !s.Enabled() {
		return "", true
	}

	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, sessionKey(sessionID), token, policy.LockTTL).Result()
	if err != nil {
		// Redis being down must not block verification.
		s.log.Warn("session lock unavailable", zap.String("session_id", sessionID), zap.Error(err))
		return "", true
	}
	return token, ok
}

func (s *SessionLocker) Release(ctx context.Context, sessionID, token string) {
	if !s.Enabled() || token == "" {
		return
	}
	if err := s.release.Run(ctx, s.client, []string{sessionKey(sessionID)}, token).Err(); err != nil {
		s.log.Warn("session lock release failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
