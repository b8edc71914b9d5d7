//go:build windows

package launcher

// Double-clicking the executable opens a console that closes as soon as the
// process exits, so failures are only readable if the launcher waits.
const autoPauseDefault = true
