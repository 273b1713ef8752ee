// Package goroutine launches background goroutines that must not take the
// process down with them.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine. A panic inside fn is logged with its
// stack trace and swallowed; the server and the sync loop keep running.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
