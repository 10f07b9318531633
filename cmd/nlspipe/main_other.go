//go:build !windows

package main

// windowsFileCleanupDelay is a no-op outside Windows.
func windowsFileCleanupDelay() {}
