package application

import (
	"context"
	"log/slog"
	"time"
)

// PriceRefresher is what the updater drives on each tick.
type PriceRefresher interface {
	RefreshPrices(ctx context.Context) error
}

// PriceUpdater periodically re-fetches quotes for the tracked catalog so the
// cache stays warm between client requests.
type PriceUpdater struct {
	service  PriceRefresher
	interval time.Duration
	stopChan chan struct{}
}

func NewPriceUpdater(service PriceRefresher, interval time.Duration) *PriceUpdater {
	return &PriceUpdater{
		service:  service,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs one immediate refresh and then loops on the interval until Stop
// or ctx cancellation. Blocking; run it on its own goroutine.
func (u *PriceUpdater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	slog.Info("Price updater started", "interval", u.interval)
	u.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			u.refresh(ctx)
		case <-u.stopChan:
			slog.Info("Price updater stopped")
			return
		case <-ctx.Done():
			slog.Info("Price updater stopped due to context cancellation")
			return
		}
	}
}

func (u *PriceUpdater) refresh(ctx context.Context) {
	if err := u.service.RefreshPrices(ctx); err != nil {
		slog.Error("Error refreshing prices", "error", err)
	}
}

func (u *PriceUpdater) Stop() {
	close(u.stopChan)
}
