//go:build windows

package overlay

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"circle-search/src/geometry"
	"circle-search/src/selection"

	"github.com/lxn/win"
)

const (
	overlayClassName         = "CircleSearchOverlay"
	overlayAlpha             = 77 // ~0.3 opacity
	overlayHintTop           = 50
	overlayPenWidth          = 2
	overlayKeyPollTimerID    = 1
	overlayKeyPollIntervalMs = 25
	overlayCloseTimeout      = 2 * time.Second

	wsExLayered = 0x00080000
	lwaAlpha    = 0x00000002
	mkLButton   = 0x0001

	colorRed   = 0x000000FF
	colorWhite = 0x00FFFFFF
)

var (
	user32DLL                      = syscall.NewLazyDLL("user32.dll")
	procAllowSetForegroundWindow   = user32DLL.NewProc("AllowSetForegroundWindow")
	procGetAsyncKeyState           = user32DLL.NewProc("GetAsyncKeyState")
	procSetLayeredWindowAttributes = user32DLL.NewProc("SetLayeredWindowAttributes")

	gdi32DLL      = syscall.NewLazyDLL("gdi32.dll")
	procCreatePen = gdi32DLL.NewProc("CreatePen")
	procRectangle = gdi32DLL.NewProc("Rectangle")

	registerOnce sync.Once
	registerErr  error

	// Sessions are serialized by the event loop, so one surface is live at a time.
	activeSurface atomic.Pointer[surface]
)

// surface is a layered full-screen window covering the virtual screen.
// The window lives on its own locked OS thread for the duration of one session.
type surface struct {
	origin geometry.Point
	hint   string

	events chan selection.Event
	done   chan struct{}
	exited chan struct{}

	hwnd      win.HWND
	escapeWas bool

	mu         sync.Mutex
	preview    geometry.Rectangle
	hasPreview bool

	closeOnce sync.Once
}

func newPlatformSurface() selection.Surface {
	return &surface{
		events: make(chan selection.Event, 64),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (s *surface) Open(ctx context.Context, hint string) (<-chan selection.Event, error) {
	s.hint = hint
	ready := make(chan error, 1)
	go s.run(ready)
	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
		return s.events, nil
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
}

func (s *surface) Render(effect selection.Effect) {
	s.mu.Lock()
	switch effect.Kind {
	case selection.EffectPreview:
		s.preview = effect.Rect
		s.hasPreview = true
	case selection.EffectErase:
		s.hasPreview = false
	}
	hwnd := s.hwnd
	s.mu.Unlock()

	if hwnd != 0 && effect.Kind != selection.EffectFinish {
		win.InvalidateRect(hwnd, nil, true)
	}
}

// Close dismisses the window and waits for its thread to finish.
func (s *surface) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		hwnd := s.hwnd
		s.mu.Unlock()
		if hwnd != 0 {
			win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		}
	})
	select {
	case <-s.exited:
		return nil
	case <-time.After(overlayCloseTimeout):
		return fmt.Errorf("overlay window did not close within %v", overlayCloseTimeout)
	}
}

func (s *surface) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.exited)

	if err := registerClass(); err != nil {
		ready <- err
		return
	}

	vx := win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)
	vy := win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)
	vw := win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)
	vh := win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)
	s.origin = geometry.Point{X: int(vx), Y: int(vy)}
	log.Printf("OVERLAY: virtual screen x=%d y=%d w=%d h=%d", vx, vy, vw, vh)

	if !activeSurface.CompareAndSwap(nil, s) {
		ready <- fmt.Errorf("another selection overlay is already open")
		return
	}
	defer activeSurface.CompareAndSwap(s, nil)

	hwnd := win.CreateWindowEx(
		wsExLayered|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr(s.hint),
		win.WS_POPUP|win.WS_VISIBLE,
		vx, vy, vw, vh,
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("failed to create overlay window")
		return
	}
	s.mu.Lock()
	s.hwnd = hwnd
	s.mu.Unlock()
	select {
	case <-s.done:
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	default:
	}

	if ret, _, err := procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, overlayAlpha, lwaAlpha); ret == 0 {
		log.Printf("OVERLAY: SetLayeredWindowAttributes failed: %v", err)
	}

	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(hwnd)
	win.BringWindowToTop(hwnd)
	win.SetFocus(hwnd)
	win.UpdateWindow(hwnd)
	if win.SetTimer(hwnd, overlayKeyPollTimerID, overlayKeyPollIntervalMs, 0) == 0 {
		log.Printf("OVERLAY: Failed to start keyboard poll timer")
	}
	ready <- nil

	// The thread is dedicated to this window, so WM_QUIT cannot leak into a later session.
	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			break
		}
		if ret == -1 {
			log.Printf("OVERLAY: GetMessage error")
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	s.mu.Lock()
	s.hwnd = 0
	s.mu.Unlock()
}

func registerClass() error {
	registerOnce.Do(func() {
		wndClass := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)),
			HbrBackground: win.HBRUSH(win.GetStockObject(win.BLACK_BRUSH)),
			LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		}
		if win.RegisterClassEx(&wndClass) == 0 {
			registerErr = fmt.Errorf("failed to register overlay window class")
		}
	})
	return registerErr
}

// emit forwards an event unless the session already ended.
func (s *surface) emit(ev selection.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// screenPoint converts client coordinates to virtual-screen coordinates.
// Client coordinates are signed while the mouse is captured.
func (s *surface) screenPoint(lParam uintptr) (int, int) {
	x := int(int16(win.LOWORD(uint32(lParam))))
	y := int(int16(win.HIWORD(uint32(lParam))))
	return x + s.origin.X, y + s.origin.Y
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	s := activeSurface.Load()
	if s == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		s.emit(selection.Press(s.screenPoint(lParam)))
		return 0

	case win.WM_MOUSEMOVE:
		if wParam&mkLButton != 0 {
			s.emit(selection.Move(s.screenPoint(lParam)))
		}
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		s.emit(selection.Release(s.screenPoint(lParam)))
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			s.escapeWas = true
			s.emit(selection.Cancel())
		}
		return 0

	case win.WM_TIMER:
		if wParam == overlayKeyPollTimerID {
			// The overlay may not own the keyboard focus, so ESC is also polled.
			down := asyncKeyDown(win.VK_ESCAPE)
			if down && !s.escapeWas {
				s.emit(selection.Cancel())
			}
			s.escapeWas = down
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		s.paint(hwnd, hdc)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)

	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.KillTimer(hwnd, overlayKeyPollTimerID)
		win.PostQuitMessage(0)
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func (s *surface) paint(hwnd win.HWND, hdc win.HDC) {
	var client win.RECT
	win.GetClientRect(hwnd, &client)
	win.FillRect(hdc, &client, win.HBRUSH(win.GetStockObject(win.BLACK_BRUSH)))

	hint := syscall.StringToUTF16(s.hint)
	n := int32(len(hint) - 1)
	var size win.SIZE
	win.GetTextExtentPoint32(hdc, &hint[0], n, &size)
	win.SetBkMode(hdc, win.TRANSPARENT)
	win.SetTextColor(hdc, win.COLORREF(colorWhite))
	win.TextOut(hdc, (client.Right-size.CX)/2, overlayHintTop, &hint[0], n)

	s.mu.Lock()
	rect, visible := s.preview, s.hasPreview
	s.mu.Unlock()
	if !visible {
		return
	}

	r := rect.Offset(-s.origin.X, -s.origin.Y)
	pen, _, _ := procCreatePen.Call(0, overlayPenWidth, colorRed)
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))
	procRectangle.Call(uintptr(hdc), uintptr(r.Left), uintptr(r.Top), uintptr(r.Left+r.Width), uintptr(r.Top+r.Height))
	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))
}

func asyncKeyDown(vk int32) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(state)&0x8000 != 0
}
