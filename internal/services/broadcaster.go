package services

import (
	"context"

	"casino-vault-backend/internal/models"
)

// Broadcaster receives every committed state change. Delivery is best
// effort: a failing subscriber never undoes a committed operation.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, event *models.CasinoEvent)
}

// MultiBroadcaster fans an event out to several subscribers in order.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) BroadcastEvent(ctx context.Context, event *models.CasinoEvent) {
	for _, b := range m {
		if b != nil {
			b.BroadcastEvent(ctx, event)
		}
	}
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastEvent(context.Context, *models.CasinoEvent) {}
