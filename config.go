package smpa

import "sync"

// defaultProgress holds the process-wide fallback progress callback, used
// only when an operation was not given its own via options. Guarded because
// hosts may install it from a different goroutine than the one running
// archive operations.
var defaultProgress struct {
	sync.RWMutex
	fn ProgressFunc
}

// SetDefaultProgress installs fn as the process-wide progress callback for
// operations that were not given one explicitly. Passing nil removes it;
// with neither a per-operation nor a default callback installed, operations
// simply never report and can only be cancelled via context.
func SetDefaultProgress(fn ProgressFunc) {
	defaultProgress.Lock()
	defaultProgress.fn = fn
	defaultProgress.Unlock()
}

func getDefaultProgress() ProgressFunc {
	defaultProgress.RLock()
	defer defaultProgress.RUnlock()
	return defaultProgress.fn
}
