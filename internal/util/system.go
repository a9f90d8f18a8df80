package util

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemInfo contains information about the host system. Fields that could
// not be read are left at their zero value.
type SystemInfo struct {
	Hostname        string
	OS              string
	Arch            string
	CPUModel        string
	LogicalCores    int
	TotalMemory     uint64
	AvailableMemory uint64
	// DiskFree is the free space on the filesystem holding the path passed
	// to GetSystemInfo.
	DiskFree uint64
}

// GetSystemInfo collects system information. diskPath may be empty.
func GetSystemInfo(ctx context.Context, diskPath string) SystemInfo {
	hostname, _ := os.Hostname()
	info := SystemInfo{
		Hostname:     hostname,
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		LogicalCores: LogicalCores(ctx),
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemory = vm.Total
		info.AvailableMemory = vm.Available
	}
	if diskPath != "" {
		info.DiskFree = DiskFree(ctx, diskPath)
	}
	return info
}

// LogicalCores returns the number of logical CPUs, falling back to the
// runtime's count.
func LogicalCores(ctx context.Context) int {
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// DiskFree returns the free bytes on the filesystem holding path, or 0.
func DiskFree(ctx context.Context, path string) uint64 {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0
	}
	return usage.Free
}
