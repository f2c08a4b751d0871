package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Monitor re-analyzes the wallet set on a fixed interval until the context
// is cancelled. The returned summary spans every completed batch.
func (r *Runner) Monitor(ctx context.Context, wallets []string, interval time.Duration) (Summary, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	session := Summary{}

	batch, err := r.AnalyzeWallets(ctx, wallets)
	if err != nil {
		return session, err
	}
	session.Merge(batch)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("monitor stopped",
				zap.Int("scanned", session.Scanned),
				zap.Int("flagged", session.Flagged),
				zap.Int("failed", session.Failed))
			if errors.Is(ctx.Err(), context.Canceled) {
				return session, nil
			}
			return session, ctx.Err()
		case <-ticker.C:
			batch, err := r.AnalyzeWallets(ctx, wallets)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				return session, err
			}
			session.Merge(batch)
		}
	}
}
