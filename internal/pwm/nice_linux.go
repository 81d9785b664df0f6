//go:build linux

package pwm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setThreadNice applies nice to the calling OS thread only. On Linux
// setpriority with a thread id affects that thread, not the whole process.
func setThreadNice(nice int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice); err != nil {
		return fmt.Errorf("pwm: set thread nice %d: %w", nice, err)
	}
	return nil
}
