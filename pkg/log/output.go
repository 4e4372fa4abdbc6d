package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes to stderr (or a custom writer in tests).
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns an output writing to os.Stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

// NewWriterOutput returns an output writing to w.
func NewWriterOutput(w io.Writer) *ConsoleOutput { return &ConsoleOutput{w: w} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// FileOutput appends entries to a file.
type FileOutput struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileOutput opens (or creates) path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{f: f}, nil
}

func (o *FileOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.f.Write(formatted)
	return err
}

func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.Close()
}

// NullOutput discards everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }
