package util

import (
	"context"
	"runtime"
	"testing"
)

func TestLogicalCores(t *testing.T) {
	if cores := LogicalCores(context.Background()); cores <= 0 {
		t.Errorf("LogicalCores() = %d, want > 0", cores)
	}
}

func TestGetSystemInfo(t *testing.T) {
	info := GetSystemInfo(context.Background(), t.TempDir())

	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s, want %s/%s", info.OS, info.Arch, runtime.GOOS, runtime.GOARCH)
	}
	if info.LogicalCores <= 0 {
		t.Errorf("LogicalCores = %d", info.LogicalCores)
	}
	if runtime.GOOS == "linux" {
		if info.TotalMemory == 0 {
			t.Error("TotalMemory should be readable on linux")
		}
		if info.DiskFree == 0 {
			t.Error("DiskFree should be readable for a temp dir on linux")
		}
	}
}

func TestDiskFreeMissingPath(t *testing.T) {
	if got := DiskFree(context.Background(), "/nonexistent/ladder/path"); got != 0 {
		t.Errorf("DiskFree(missing) = %d, want 0", got)
	}
}
