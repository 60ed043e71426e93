// Package logutil provides logging functions.
package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	outFile *os.File
	loggers []*log.Logger
)

// GetLogger gets a logger with a prefix. Loggers share a common sink,
// which defaults to discarding all output until SetOutputFile is called
// with a valid path.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers obtained with GetLogger,
// before or after this call, to the given writer.
func SetOutput(newOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	out = newOut
	applyOut()
}

// SetOutputFile redirects the output of all loggers to the named file,
// creating it if needed. An empty path discards output again. It returns
// an error if the file cannot be opened.
func SetOutputFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	if path == "" {
		out = io.Discard
		applyOut()
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	outFile = file
	out = file
	applyOut()
	return nil
}

func closeFile() {
	if outFile != nil {
		outFile.Close()
		outFile = nil
	}
}

func applyOut() {
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
}
