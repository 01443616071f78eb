// README: Change feed over a per-rider Redis pub/sub channel.
package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mototaxi/internal/types"
)

var errSubscriptionClosed = errors.New("realtime: redis subscription closed")

// RiderChannel is the channel ride changes for riderID are published on.
func RiderChannel(riderID types.ID) string {
	return "rides:rider:" + string(riderID)
}

type RedisSource struct {
	redis *redis.Client
	log   logrus.FieldLogger
}

func NewRedisSource(rdb *redis.Client, log logrus.FieldLogger) *RedisSource {
	return &RedisSource{redis: rdb, log: log}
}

func (s *RedisSource) Listen(ctx context.Context, riderID types.ID, ready func(), deliver func(Change)) error {
	channel := RiderChannel(riderID)
	sub := s.redis.Subscribe(ctx, channel)
	defer sub.Close()

	// wait for the subscription to be confirmed before reading
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	s.log.WithField("channel", channel).Info("listening for ride changes")
	ready()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errSubscriptionClosed
			}
			c, err := ParseChange([]byte(msg.Payload))
			if err != nil {
				s.log.WithError(err).Warn("dropping ride change")
				continue
			}
			deliver(c)
		}
	}
}
