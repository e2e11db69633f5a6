//go:build windows

package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

type windowsImpl struct {
	mouseHook     windows.Handle
	keyboardHook  windows.Handle
	inputCallback func(InputEvent)
	stopped       bool
	mu            sync.Mutex
}

var (
	user32   = windows.NewLazyDLL("user32.dll")
	kernel32 = windows.NewLazyDLL("kernel32.dll")
	psapi    = windows.NewLazyDLL("psapi.dll")

	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLength      = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procSetWindowsHookEx         = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx           = user32.NewProc("CallNextHookEx")
	procGetKeyState              = user32.NewProc("GetKeyState")

	procGetModuleFileNameEx = psapi.NewProc("GetModuleFileNameExW")
	procOpenProcess         = kernel32.NewProc("OpenProcess")
	procCloseHandle         = kernel32.NewProc("CloseHandle")
)

const (
	whMouseLL    = 14
	whKeyboardLL = 13

	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C

	wheelDelta = 120

	processQueryInformation = 0x0400
	processVMRead           = 0x0010
)

// msllHookStruct mirrors MSLLHOOKSTRUCT.
type msllHookStruct struct {
	X         int32
	Y         int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

func newWindowsPlatform() (Platform, error) {
	return &windowsImpl{}, nil
}

func (p *windowsImpl) GetActiveWindow() (*WindowInfo, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return nil, fmt.Errorf("failed to get foreground window")
	}

	var title string
	length, _, _ := procGetWindowTextLength.Call(hwnd)
	if length > 0 {
		length++ // null terminator
		buf := make([]uint16, length)
		procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(length))
		title = windows.UTF16ToString(buf)
	}

	var processID uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&processID)))

	processPath := p.getProcessPath(int(processID))

	return &WindowInfo{
		Title:       title,
		Application: p.getApplicationName(processPath),
		ProcessID:   int(processID),
		ProcessPath: processPath,
		Timestamp:   time.Now(),
	}, nil
}

func (p *windowsImpl) getProcessPath(processID int) string {
	if processID == 0 {
		return ""
	}

	handle, _, _ := procOpenProcess.Call(
		processQueryInformation|processVMRead,
		0,
		uintptr(processID),
	)
	if handle == 0 {
		return ""
	}
	defer procCloseHandle.Call(handle)

	buf := make([]uint16, 260)
	ret, _, _ := procGetModuleFileNameEx.Call(
		handle,
		0,
		uintptr(unsafe.Pointer(&buf[0])),
		260,
	)
	if ret == 0 {
		return ""
	}

	return windows.UTF16ToString(buf)
}

func (p *windowsImpl) getApplicationName(processPath string) string {
	if processPath == "" {
		return ""
	}

	parts := strings.Split(processPath, "\\")
	exeName := parts[len(parts)-1]
	return strings.TrimSuffix(exeName, ".exe")
}

func (p *windowsImpl) StartInputCapture(callback func(InputEvent)) error {
	p.mu.Lock()
	p.inputCallback = callback
	p.stopped = false
	p.mu.Unlock()

	mouseHookProc := syscall.NewCallback(p.mouseHookProc)
	mouseHook, _, _ := procSetWindowsHookEx.Call(whMouseLL, mouseHookProc, 0, 0)
	if mouseHook == 0 {
		return fmt.Errorf("failed to set mouse hook")
	}
	p.mouseHook = windows.Handle(mouseHook)

	keyboardHookProc := syscall.NewCallback(p.keyboardHookProc)
	keyboardHook, _, _ := procSetWindowsHookEx.Call(whKeyboardLL, keyboardHookProc, 0, 0)
	if keyboardHook == 0 {
		procUnhookWindowsHookEx.Call(uintptr(p.mouseHook))
		p.mouseHook = 0
		return fmt.Errorf("failed to set keyboard hook")
	}
	p.keyboardHook = windows.Handle(keyboardHook)

	return nil
}

func (p *windowsImpl) StopInputCapture() error {
	p.mu.Lock()
	p.stopped = true
	p.inputCallback = nil

	// Remove hooks immediately; leaving low-level hooks installed blocks
	// process exit.
	if p.mouseHook != 0 {
		procUnhookWindowsHookEx.Call(uintptr(p.mouseHook))
		p.mouseHook = 0
	}
	if p.keyboardHook != 0 {
		procUnhookWindowsHookEx.Call(uintptr(p.keyboardHook))
		p.keyboardHook = 0
	}
	p.mu.Unlock()

	// Give Windows time to process hook removal
	time.Sleep(100 * time.Millisecond)

	return nil
}

func keyDown(vk int) bool {
	state, _, _ := procGetKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}

func (p *windowsImpl) mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	p.mu.Lock()
	stopped := p.stopped
	callback := p.inputCallback
	p.mu.Unlock()

	if nCode >= 0 && !stopped && callback != nil {
		info := (*msllHookStruct)(unsafe.Pointer(lParam))
		ev := InputEvent{
			Timestamp: time.Now(),
			X:         float64(info.X),
			Y:         float64(info.Y),
		}

		switch wParam {
		case wmMouseMove:
			ev.Type = EventMouseMove
			callback(ev)
		case wmLButtonDown:
			ev.Type, ev.Button = EventMouseDown, ButtonLeft
			callback(ev)
		case wmLButtonUp:
			ev.Type, ev.Button = EventMouseUp, ButtonLeft
			callback(ev)
		case wmRButtonDown:
			ev.Type, ev.Button = EventMouseDown, ButtonRight
			callback(ev)
		case wmRButtonUp:
			ev.Type, ev.Button = EventMouseUp, ButtonRight
			callback(ev)
		case wmMButtonDown:
			ev.Type, ev.Button = EventMouseDown, ButtonMiddle
			callback(ev)
		case wmMButtonUp:
			ev.Type, ev.Button = EventMouseUp, ButtonMiddle
			callback(ev)
		case wmMouseWheel:
			ev.Type = EventWheel
			// High word of mouseData is the signed wheel delta in
			// multiples of 120.
			ev.Rotation = float64(int16(info.MouseData>>16)) / wheelDelta
			callback(ev)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *windowsImpl) keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	p.mu.Lock()
	stopped := p.stopped
	callback := p.inputCallback
	p.mu.Unlock()

	if nCode >= 0 && !stopped && callback != nil {
		info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		keycode := int(info.VkCode)

		switch wParam {
		case wmKeyDown, wmSysKeyDown:
			callback(InputEvent{
				Type:         EventKeyDown,
				Timestamp:    time.Now(),
				Keycode:      keycode,
				Shift:        keyDown(vkShift),
				Ctrl:         keyDown(vkControl),
				Alt:          keyDown(vkMenu),
				Meta:         keyDown(vkLWin) || keyDown(vkRWin),
				WordBoundary: IsWordBoundaryKey(keycode),
			})
		case wmKeyUp, wmSysKeyUp:
			callback(InputEvent{
				Type:      EventKeyUp,
				Timestamp: time.Now(),
				Keycode:   keycode,
			})
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *windowsImpl) GetDeviceID() (string, error) {
	// Machine GUID from WMI
	cmd := exec.Command("wmic", "csproduct", "get", "uuid")
	output, err := cmd.Output()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && line != "UUID" && len(line) > 10 {
				return line, nil
			}
		}
	}

	hostname, _ := os.Hostname()
	if hostname != "" {
		return hostname, nil
	}

	return "", fmt.Errorf("could not determine Windows device ID")
}

func (p *windowsImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:        "windows",
		OSVersion: runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}
