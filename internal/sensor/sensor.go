package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultPath is the hwmon input of the first NVMe drive.
const DefaultPath = "/sys/block/nvme0n1/device/hwmon1/temp1_input"

var (
	// ErrUnavailable means the source could not be read at all.
	ErrUnavailable = errors.New("sensor: temperature unavailable")
	// ErrParse means the source was read but did not hold a number.
	ErrParse = errors.New("sensor: malformed temperature")
)

// ParseMilliC parses a hwmon-style reading (millidegrees Celsius as text).
func ParseMilliC(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrParse)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return v / 1000.0, nil
}

func readFileC(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ParseMilliC(string(b))
}

// File reads a temperature from a sysfs-style file. A File must not be
// copied after first use.
type File struct {
	Path string
	// Timeout bounds a single read. Zero waits until ctx is done.
	Timeout time.Duration

	pending atomic.Bool
}

var readFileFn = readFileC

// ReadCelsius reads the file once. A read still blocked when ctx ends or
// Timeout elapses is abandoned and reported as ErrUnavailable.
//
// At most one read is in flight. While an abandoned read is still blocked in
// the kernel, further calls fail with ErrUnavailable without starting another.
func (f *File) ReadCelsius(ctx context.Context) (float64, error) {
	path := f.Path
	if path == "" {
		path = DefaultPath
	}
	if !f.pending.CompareAndSwap(false, true) {
		return 0, fmt.Errorf("%w: previous read of %s still pending", ErrUnavailable, path)
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	type result struct {
		c   float64
		err error
	}
	read := readFileFn
	ch := make(chan result, 1)
	go func() {
		c, err := read(path)
		f.pending.Store(false)
		ch <- result{c: c, err: err}
	}()

	select {
	case r := <-ch:
		return r.c, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, ctx.Err())
	}
}
