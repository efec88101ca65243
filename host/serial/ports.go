//go:build !wasm

package serial

import (
	"fmt"
	"sort"
	"strings"

	bugst "go.bug.st/serial"
)

// ListPorts returns the serial devices present on this host. USB CDC
// devices, where the firmware shows up, sort first.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sortPorts(ports)
	return ports, nil
}

func sortPorts(ports []string) {
	sort.SliceStable(ports, func(i, j int) bool {
		ci, cj := isCDC(ports[i]), isCDC(ports[j])
		if ci != cj {
			return ci
		}
		return ports[i] < ports[j]
	})
}

func isCDC(name string) bool {
	return strings.Contains(name, "ttyACM") || strings.Contains(name, "usbmodem")
}
