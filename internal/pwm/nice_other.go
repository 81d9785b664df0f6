//go:build !linux

package pwm

import "fmt"

func setThreadNice(nice int) error {
	return fmt.Errorf("pwm: thread nice unsupported on this platform")
}
