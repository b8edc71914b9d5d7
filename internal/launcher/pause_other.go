//go:build !windows

package launcher

const autoPauseDefault = false
