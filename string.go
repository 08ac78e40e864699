package hop

import (
	"fmt"
	"sync/atomic"
	"time"
)

var uniqueCounter uint64

// Unique appends an _ followed by the current Unix time in
// nanoseconds and a process-wide counter to name, so that nodes
// created in quick succession still receive distinct names
func Unique(name string) string {
	n := atomic.AddUint64(&uniqueCounter, 1)
	return fmt.Sprintf("%v_%v_%v", name, time.Now().UnixNano(), n)
}
