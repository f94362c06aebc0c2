//go:build windows

package runner

// fixOutputProcessing does nothing on Windows; console output processing
// survives raw input mode there.
func fixOutputProcessing(fd int) {}
