package checkpointer

import (
	"fmt"
	"time"
)

// FileTimer returns a filename generator that stamps each checkpoint
// with the current Unix time in nanoseconds, so successive checkpoints
// never collide.
func FileTimer(prefix, extension string) func() string {
	return func() string {
		return fmt.Sprintf("%v-%v%v", prefix, time.Now().UnixNano(),
			extension)
	}
}
