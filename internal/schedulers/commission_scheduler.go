package schedulers

import (
	"context"
	"time"

	"refcore/internal/config"
	"refcore/internal/services"
)

var log = config.InitLogger()

const sweepBatchSize = 100

// RetrySkippedCredits returns the sweep run by cron: it re-scans processed
// ledger entries that still carry skipped credits and retries them, so a
// recipient registered after the trade eventually receives the recorded
// amount.
func RetrySkippedCredits(cs *services.CommissionService) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		settled, err := cs.RetryPendingCredits(ctx, sweepBatchSize)
		if err != nil {
			log.Error("Credit retry sweep failed: ", err)
			return
		}
		if settled > 0 {
			log.Infof("Credit retry sweep settled %d transactions", settled)
		}
	}
}
