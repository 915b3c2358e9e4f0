package main

import (
	"context"
	"time"
)

func (app *application) expirePaymentIntentsEvery30Mins(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		// Run once immediately
		app.expireStalePaymentIntents(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.expireStalePaymentIntents(ctx)
			}
		}
	}()
}

func (app *application) expireStalePaymentIntents(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	n, err := app.payments.ExpireStaleIntents(ctx)
	if err != nil {
		app.logger.Errorf("Error expiring stale payment intents: %v", err)
		return
	}
	if n > 0 {
		app.logger.Infof("Expired %d stale payment intents at %s", n, time.Now().Format(time.RFC1123))
	}
}
