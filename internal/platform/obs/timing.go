package obs

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"checkpoint-route-service/internal/platform/logger"
)

// Time logs the duration of an operation when the returned func runs.
// Pass the address of the operation's named error to log failures:
//
//	defer obs.Time(ctx, log, "sequence.store.Replace")(&err)
func Time(ctx context.Context, log *logger.Logger, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		if log == nil {
			return
		}

		dur := time.Since(start)
		reqID := middleware.GetReqID(ctx)

		if errp != nil && *errp != nil {
			log.Warn("op failed", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		log.Debug("op done", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds())
	}
}
