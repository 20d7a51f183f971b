// Package worker consumes order events and sends the matching notifications.
package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/zakup/internal/messaging"
)

// Source is satisfied by *messaging.Consumer.
type Source interface {
	Consume(ctx context.Context, handler messaging.HandlerFunc) error
}

// Run consumes both order topics until ctx is cancelled or one consumer fails,
// in which case the other is stopped too.
func Run(ctx context.Context, h *NotificationHandler, placed, statusChanged Source) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return placed.Consume(ctx, h.HandlePlaced)
	})
	g.Go(func() error {
		return statusChanged.Consume(ctx, h.HandleStatusChanged)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
