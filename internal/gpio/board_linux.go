//go:build linux

package gpio

import (
	"os"
	"strings"
)

// Device-tree model locations, in order of preference.
var modelPaths = []string{
	"/sys/firmware/devicetree/base/model",
	"/proc/device-tree/model",
}

func boardModel() string {
	for _, p := range modelPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		model := strings.TrimSpace(string(b))
		return strings.Trim(model, "\x00")
	}
	return ""
}

func isRaspberryPi5() bool {
	return strings.Contains(boardModel(), "Raspberry Pi 5")
}

// DefaultChip returns the chip carrying the 40-pin header lines.
// The Pi 5 RP1 exposes them on gpiochip4 with most kernels; older boards
// use gpiochip0.
func DefaultChip() string {
	if isRaspberryPi5() {
		return "gpiochip4"
	}
	return "gpiochip0"
}
