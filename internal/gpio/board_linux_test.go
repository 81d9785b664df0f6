//go:build linux

package gpio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func withModel(t *testing.T, contents string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	old := modelPaths
	modelPaths = []string{filepath.Join(t.TempDir(), "missing"), p}
	t.Cleanup(func() { modelPaths = old })
}

func TestDefaultChip_Pi5(t *testing.T) {
	withModel(t, "Raspberry Pi 5 Model B Rev 1.0\x00")
	require.Equal(t, "gpiochip4", DefaultChip())
}

func TestDefaultChip_Pi4(t *testing.T) {
	withModel(t, "Raspberry Pi 4 Model B Rev 1.4\x00")
	require.Equal(t, "gpiochip0", DefaultChip())
}

func TestDefaultChip_NoModel(t *testing.T) {
	old := modelPaths
	modelPaths = []string{filepath.Join(t.TempDir(), "missing")}
	t.Cleanup(func() { modelPaths = old })
	require.Equal(t, "gpiochip0", DefaultChip())
}
