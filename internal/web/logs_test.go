package web

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogBuffer_JoinsPartialWrites(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("fancontrol: te"))
	_, _ = b.Write([]byte("mp=41.00C duty=23%\r\nsecond"))

	lines, _ := b.Snapshot(0)
	require.Equal(t, []string{"fancontrol: temp=41.00C duty=23%"}, lines)

	_, _ = b.Write([]byte(" line\n\n"))
	lines, _ = b.Snapshot(0)
	require.Len(t, lines, 2)
	require.Equal(t, "second line", lines[1])
}

func TestLogBuffer_EvictsOldest(t *testing.T) {
	b := NewLogBuffer(2)
	_, _ = b.Write([]byte("a\nb\nc\n"))

	lines, dropped := b.Snapshot(10)
	require.Equal(t, []string{"b", "c"}, lines)
	require.Equal(t, uint64(1), dropped)

	lines, _ = b.Snapshot(1)
	require.Equal(t, []string{"c"}, lines)
}
