package websocket

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

const MessageTypePortalSession = "portal_session"

func userChannel(userID string) string {
	return "user_updates:" + userID
}

// RedisPublisher sends portal session events to the hub through Redis, so
// any server instance holding the user's socket can deliver them.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.SessionEvent) {
	data, err := encodeSessionEvent(event)
	if err != nil {
		logger.WithUser(event.UserID).WithError(err).Warn("failed to encode session event")
		return
	}
	if err := p.rdb.Publish(ctx, userChannel(event.UserID), data).Err(); err != nil {
		logger.WithUser(event.UserID).WithError(err).Warn("failed to publish session event")
	}
}

func encodeSessionEvent(event models.SessionEvent) ([]byte, error) {
	return json.Marshal(models.WSMessage{Type: MessageTypePortalSession, Payload: event})
}
