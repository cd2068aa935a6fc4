package utils

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang-stock-suggester/pkg/logger"
)

// GoSafe runs fn in a new goroutine and swallows panics so a single failing
// worker cannot take the whole process down.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("recovered from panic in goroutine: %v\n%s\n", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// SafeCall runs fn and converts a panic into an error.
func SafeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// ShouldContinue reports whether ctx is still live, logging when it is not.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Warn("Context done, stopping work", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
