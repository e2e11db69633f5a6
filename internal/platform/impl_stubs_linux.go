//go:build linux

package platform

// Stubs for the other platforms when building for Linux.
func newWindowsPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "windows (building for linux)"}
}

func newDarwinPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "darwin (building for linux)"}
}
