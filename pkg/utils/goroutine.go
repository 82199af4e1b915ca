package utils

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang-stock-screener/pkg/logger"

	"go.uber.org/zap"
)

// GoSafe runs fn in a goroutine and recovers from panics so that a single
// failing worker does not take the process down.
func GoSafe(log *logger.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Recovered from panic",
					logger.StringField("panic", fmt.Sprint(r)),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether ctx is still alive, logging when it is not.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.WarnContext(ctx, "Context done, stopping", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
