//go:build linux

package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

type linuxImpl struct{}

func newLinuxPlatform() (Platform, error) {
	return nil, fmt.Errorf("Linux implementation not yet available")
}

func (p *linuxImpl) GetActiveWindow() (*WindowInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *linuxImpl) StartInputCapture(callback func(InputEvent)) error {
	return fmt.Errorf("not implemented")
}

func (p *linuxImpl) StopInputCapture() error {
	return nil
}

func (p *linuxImpl) GetDeviceID() (string, error) {
	machineID, err := os.ReadFile("/etc/machine-id")
	if err == nil && len(machineID) > 0 {
		return strings.TrimSpace(string(machineID)), nil
	}

	hostname, _ := os.Hostname()
	if hostname != "" {
		return hostname, nil
	}
	return "unknown-device", nil
}

func (p *linuxImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:        "linux",
		OSVersion: runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}
