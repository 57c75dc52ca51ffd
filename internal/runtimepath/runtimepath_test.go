package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/tilewm-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPathForDisplay(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	tests := map[string]string{
		"":            "tilewm.sock",
		":0":          "tilewm-0.sock",
		":1.0":        "tilewm-1.0.sock",
		"host:2":      "tilewm-host_2.sock",
		"/tmp/x:0/ab": "tilewm-_tmp_x_0_ab.sock",
	}
	for display, want := range tests {
		got, err := SocketPathForDisplay(display)
		if err != nil {
			t.Fatalf("SocketPathForDisplay(%q) error: %v", display, err)
		}
		if got != filepath.Join(td, want) {
			t.Fatalf("SocketPathForDisplay(%q) = %q, want %q", display, got, filepath.Join(td, want))
		}
	}
}

func TestSocketPath_UsesDisplayEnv(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)
	t.Setenv("DISPLAY", ":3")

	got, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if got != filepath.Join(td, "tilewm-3.sock") {
		t.Fatalf("SocketPath() = %q", got)
	}
}
