//go:build darwin

package platform

import (
	"fmt"
	"os"
	"runtime"
)

type darwinImpl struct{}

func newDarwinPlatform() (Platform, error) {
	return nil, fmt.Errorf("macOS implementation not yet available")
}

func (p *darwinImpl) GetActiveWindow() (*WindowInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *darwinImpl) StartInputCapture(callback func(InputEvent)) error {
	return fmt.Errorf("not implemented")
}

func (p *darwinImpl) StopInputCapture() error {
	return nil
}

func (p *darwinImpl) GetDeviceID() (string, error) {
	hostname, _ := os.Hostname()
	if hostname != "" {
		return hostname, nil
	}
	return "unknown-device", nil
}

func (p *darwinImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:        "darwin",
		OSVersion: runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}
