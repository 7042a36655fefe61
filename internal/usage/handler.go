package usage

import (
	"context"
	"errors"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// NewUseCountHandler applies resolved events to the link's use count. Events for
// links that no longer exist are dropped.
func NewUseCountHandler(counter shortener.UseCounter, logger *zap.Logger) messaging.Handler[LinkResolvedEvent] {
	return func(ctx context.Context, event *LinkResolvedEvent) error {
		err := counter.IncrementUseCount(ctx, shortener.Token(event.Token))
		if errors.Is(err, shortener.ErrNotFound) {
			logger.Warn("resolved event for unknown link", zap.String("token", event.Token))

			return nil
		}

		return err
	}
}

// NewCreatedLogHandler records link creations in the service log.
func NewCreatedLogHandler(logger *zap.Logger) messaging.Handler[LinkCreatedEvent] {
	return func(_ context.Context, event *LinkCreatedEvent) error {
		logger.Info("link created",
			zap.String("token", event.Token),
			zap.String("destination_url", event.DestinationURL),
			zap.String("owner_kind", event.OwnerKind),
			zap.String("owner_id", event.OwnerID),
			zap.String("client_ip", event.ClientIP),
		)

		return nil
	}
}

// CreatedEvent builds the creation event for link using client meta from ctx.
func CreatedEvent(ctx context.Context, link *shortener.Link) *LinkCreatedEvent {
	meta, _ := middleware.ClientMetaFromContext(ctx)

	return &LinkCreatedEvent{
		Token:          string(link.Token),
		DestinationURL: link.DestinationURL,
		OwnerKind:      link.Owner.Kind,
		OwnerID:        link.Owner.ID,
		ExpiresAt:      link.ExpiresAt,
		CreatedAt:      link.CreatedAt,
		ClientIP:       meta.ClientIP,
		UserAgent:      meta.UserAgent,
	}
}
