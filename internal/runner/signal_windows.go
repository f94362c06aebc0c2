//go:build windows

package runner

import "syscall"

var procGenerateConsoleCtrlEvent = syscall.NewLazyDLL("kernel32.dll").NewProc("GenerateConsoleCtrlEvent")

// sendInterrupt raises CTRL_C_EVENT for the console process group so the
// signal context stops the scan.
func sendInterrupt() {
	_, _, _ = procGenerateConsoleCtrlEvent.Call(0, 0)
}
