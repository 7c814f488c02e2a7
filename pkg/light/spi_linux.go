//go:build linux

package light

import (
	"os"

	"golang.org/x/sys/unix"
)

// _IOW('k', 4, __u32)
const spiIOCWrMaxSpeedHz = 0x40046b04

func setMaxSpeed(f *os.File, hz uint32) error {
	return unix.IoctlSetPointerInt(int(f.Fd()), spiIOCWrMaxSpeedHz, int(hz))
}
