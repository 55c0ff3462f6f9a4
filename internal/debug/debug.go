// Package debug provides an opt-in diagnostic log. User-facing output
// never goes through here.
package debug

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	logger  *log.Logger
	enabled bool
)

// Enable routes debug output to the given file, with rotation so hook
// invocations cannot grow it without bound.
func Enable(path string) {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
	if path == "" {
		logger = log.New(os.Stderr, "branchless: ", log.LstdFlags)
		return
	}
	logger = log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 1,
	}, "", log.LstdFlags)
}

// Logf writes a debug line if debug logging is enabled.
func Logf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || logger == nil {
		return
	}
	logger.Output(2, fmt.Sprintf(format, args...))
}
