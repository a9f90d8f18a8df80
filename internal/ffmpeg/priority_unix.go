//go:build unix

package ffmpeg

import "golang.org/x/sys/unix"

// niceLevel is the priority given to encoder processes in low-priority mode.
const niceLevel = 10

func lowerPriority(pid int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, niceLevel)
}
