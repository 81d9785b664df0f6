package sensor

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeReading(t *testing.T, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "temp1_input")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

// hangReads makes every read block until the test ends and counts the calls.
func hangReads(t *testing.T) (release func(), calls *atomic.Int32) {
	t.Helper()
	ch := make(chan struct{})
	calls = &atomic.Int32{}
	old := readFileFn
	readFileFn = func(string) (float64, error) {
		calls.Add(1)
		<-ch
		return 41, nil
	}
	var closed atomic.Bool
	release = func() {
		if closed.CompareAndSwap(false, true) {
			close(ch)
		}
	}
	t.Cleanup(func() {
		release()
		readFileFn = old
	})
	return release, calls
}

func TestParseMilliC(t *testing.T) {
	v, err := ParseMilliC("52345\n")
	require.NoError(t, err)
	require.InDelta(t, 52.345, v, 1e-9)
}

func TestParseMilliC_Malformed(t *testing.T) {
	for _, s := range []string{"\n", "", "hot", "NaN", "12a"} {
		_, err := ParseMilliC(s)
		require.ErrorIs(t, err, ErrParse, "input %q", s)
	}
}

func TestFile_ReadCelsius(t *testing.T) {
	f := &File{Path: writeReading(t, "42000\n")}
	v, err := f.ReadCelsius(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42.0, v)
}

func TestFile_MissingIsUnavailable(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "nope")}
	_, err := f.ReadCelsius(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.NotErrorIs(t, err, ErrParse)
}

func TestFile_GarbageIsParseError(t *testing.T) {
	f := &File{Path: writeReading(t, "N/A\n")}
	_, err := f.ReadCelsius(context.Background())
	require.ErrorIs(t, err, ErrParse)
}

func TestFile_TimeoutAbandonsHungRead(t *testing.T) {
	hangReads(t)

	start := time.Now()
	_, err := (&File{Path: "x", Timeout: 20 * time.Millisecond}).ReadCelsius(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.Less(t, time.Since(start), time.Second, "timeout not honored")
}

func TestFile_CanceledContext(t *testing.T) {
	hangReads(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&File{Path: "x"}).ReadCelsius(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFile_HungReadIsNotRestarted(t *testing.T) {
	release, calls := hangReads(t)
	f := &File{Path: "x", Timeout: 10 * time.Millisecond}

	for i := 0; i < 3; i++ {
		_, err := f.ReadCelsius(context.Background())
		require.ErrorIs(t, err, ErrUnavailable)
	}
	require.Equal(t, int32(1), calls.Load(), "a blocked read was started more than once")

	release()
	require.Eventually(t, func() bool { return !f.pending.Load() }, 2*time.Second, time.Millisecond)

	f.Timeout = time.Second
	v, err := f.ReadCelsius(context.Background())
	require.NoError(t, err)
	require.Equal(t, 41.0, v)
	require.Equal(t, int32(2), calls.Load())
}
