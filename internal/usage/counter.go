package usage

import (
	"context"
	"time"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/shortener"
)

// StreamCounter is a shortener.UseCounter that publishes a resolved event
// instead of writing the count. The consumer applies the increment.
type StreamCounter struct {
	publish messaging.Publish[LinkResolvedEvent]
	now     func() time.Time
}

// NewStreamCounter creates a counter that publishes to publish.
func NewStreamCounter(publish messaging.Publish[LinkResolvedEvent]) *StreamCounter {
	return &StreamCounter{publish: publish, now: time.Now}
}

func (c *StreamCounter) IncrementUseCount(ctx context.Context, token shortener.Token) error {
	meta, _ := middleware.ClientMetaFromContext(ctx)

	return c.publish(ctx, &LinkResolvedEvent{
		Token:      string(token),
		ResolvedAt: c.now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	})
}

// Compile-time check.
var _ shortener.UseCounter = (*StreamCounter)(nil)
