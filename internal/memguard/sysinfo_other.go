//go:build !darwin && !linux

package memguard

import "fmt"

// totalSystemRAM is unsupported on this platform.
func totalSystemRAM() (uint64, error) {
	return 0, fmt.Errorf("memguard: unsupported platform for RAM detection")
}
