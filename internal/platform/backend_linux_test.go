//go:build linux

package platform

import (
	"testing"

	"github.com/1broseidon/tilewm/internal/logging"
	"github.com/1broseidon/tilewm/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

func newTestBackend() *LinuxBackend {
	return &LinuxBackend{
		conn:          &x11.Connection{Root: 1},
		logger:        logging.Discard(),
		pendingUnmaps: make(map[xproto.Window]int),
		takeFocus:     make(map[xproto.Window]bool),
		canDelete:     make(map[xproto.Window]bool),
		docks:         make(map[xproto.Window]bool),
		clients:       make(map[xproto.Window]bool),
		stopping:      make(chan struct{}),
	}
}

func TestRequestedUnmapsAreNotWithdrawals(t *testing.T) {
	b := newTestBackend()
	b.expectUnmap(5)
	b.expectUnmap(5)

	notify := xproto.UnmapNotifyEvent{Event: 1, Window: 5}
	for i := 0; i < 2; i++ {
		if out := b.translate(notify); len(out) != 0 {
			t.Fatalf("unmap %d we requested translated to %v", i, out)
		}
	}
	out := b.translate(notify)
	if len(out) != 1 || out[0] != (WindowGone{ID: 5}) {
		t.Fatalf("client unmap translated to %v, want WindowGone", out)
	}
	if len(b.pendingUnmaps) != 0 {
		t.Fatalf("pending unmaps left behind: %v", b.pendingUnmaps)
	}
}

func TestForgetDropsWindowState(t *testing.T) {
	b := newTestBackend()
	b.expectUnmap(7)
	b.clients[7] = true
	b.docks[7] = true

	if !b.forget(7) {
		t.Fatal("forget should report a dock")
	}
	if len(b.pendingUnmaps) != 0 || len(b.clients) != 0 || len(b.docks) != 0 {
		t.Fatalf("state kept after forget: pending=%v clients=%v docks=%v", b.pendingUnmaps, b.clients, b.docks)
	}
}

func TestTranslatePointerChords(t *testing.T) {
	b := newTestBackend()
	press := xproto.ButtonPressEvent{Detail: 3, Event: 9, RootX: 120, RootY: -4, State: xproto.ModMaskControl}
	out := b.translate(press)
	want := ButtonPressed{ID: 9, Button: 3, Mods: xproto.ModMaskControl, RootX: 120, RootY: -4}
	if len(out) != 1 || out[0] != want {
		t.Fatalf("press = %v, want %v", out, want)
	}

	out = b.translate(xproto.MotionNotifyEvent{Event: 9, RootX: 130, RootY: 6})
	if len(out) != 1 || out[0] != (PointerDragged{ID: 9, RootX: 130, RootY: 6}) {
		t.Fatalf("motion = %v", out)
	}

	out = b.translate(xproto.ButtonReleaseEvent{Detail: 3, Event: 9})
	if len(out) != 1 || out[0] != (ButtonReleased{ID: 9, Button: 3}) {
		t.Fatalf("release = %v", out)
	}
}
