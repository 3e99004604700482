package auditpack

import (
	"context"
	"fmt"
	"time"

	platformredis "exportgate/internal/platform/redis"
	id "exportgate/pkg/domain"
)

// RedisGuard extends the generation gate across processes with a SET NX
// lease. The TTL bounds how long a crashed instance can block regeneration.
type RedisGuard struct {
	client *platformredis.Client
}

func NewRedisGuard(client *platformredis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func guardKey(shipmentID id.ShipmentID) string {
	return fmt.Sprintf("auditpack:generating:%s", shipmentID)
}

func (g *RedisGuard) Acquire(ctx context.Context, shipmentID id.ShipmentID, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, guardKey(shipmentID), "1", ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, shipmentID id.ShipmentID) error {
	return g.client.Del(ctx, guardKey(shipmentID)).Err()
}
