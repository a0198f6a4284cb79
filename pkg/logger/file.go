package logger

import (
	"log"
	"os"
)

// FileLogger appends log output to a file. Combine with a StandardLogger
// through MultiLogger to log to console and file at once.
type FileLogger struct {
	StandardLogger
	file *os.File
}

// NewFileLogger opens (or creates) the file at path for appending and
// returns a logger writing to it. Debug messages are suppressed unless
// verbose is set.
func NewFileLogger(path string, verbose bool) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		StandardLogger: StandardLogger{
			logger:  log.New(f, "", log.LstdFlags),
			verbose: verbose,
		},
		file: f,
	}, nil
}

// Close closes the underlying file.
func (l *FileLogger) Close() error {
	return l.file.Close()
}

// Ensure FileLogger satisfies the Logger interface.
var _ Logger = (*FileLogger)(nil)
