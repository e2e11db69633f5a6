package platform

import "time"

// Platform defines the interface for platform-specific capture sources.
type Platform interface {
	// GetActiveWindow returns information about the currently focused
	// window, or an error if no window has focus.
	GetActiveWindow() (*WindowInfo, error)

	// StartInputCapture installs the OS input hooks and invokes the
	// callback for every raw keyboard/pointer event. Callbacks may arrive
	// on an OS-owned thread; callers are expected to serialize them.
	StartInputCapture(callback func(InputEvent)) error

	// StopInputCapture removes the hooks.
	StopInputCapture() error

	// GetDeviceID returns a platform-specific stable device identifier,
	// if one is available.
	GetDeviceID() (string, error)

	// GetSystemInfo returns basic host information.
	GetSystemInfo() (*SystemInfo, error)
}

// WindowInfo describes the foreground window at a point in time.
type WindowInfo struct {
	Title       string
	Application string
	ProcessID   int
	ProcessPath string
	Timestamp   time.Time
}

// InputEventType discriminates the raw input event union.
type InputEventType string

const (
	EventKeyDown   InputEventType = "key_down"
	EventKeyUp     InputEventType = "key_up"
	EventMouseDown InputEventType = "mouse_down"
	EventMouseUp   InputEventType = "mouse_up"
	EventMouseMove InputEventType = "mouse_move"
	EventWheel     InputEventType = "wheel"
)

// MouseButton identifies which button a mouse event refers to.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// InputEvent is a raw input event. Only the fields relevant to the event
// type are populated. Events are transient: they are folded into counters
// and never persisted.
type InputEvent struct {
	Type      InputEventType
	Timestamp time.Time

	// Key events
	Keycode      int
	Shift        bool
	Ctrl         bool
	Alt          bool
	Meta         bool
	WordBoundary bool

	// Mouse events
	Button MouseButton
	X      float64
	Y      float64

	// Wheel events
	Rotation float64
}

// IsWordBoundaryKey reports whether a keycode terminates a word
// (space, enter, tab).
func IsWordBoundaryKey(keycode int) bool {
	switch keycode {
	case 0x09, 0x0D, 0x20:
		return true
	}
	return false
}

// SystemInfo contains basic host information.
type SystemInfo struct {
	OS        string
	OSVersion string
	Arch      string
	Hostname  string
}
