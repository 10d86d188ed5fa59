package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryEntry records one extraction attempt, successful or not.
// Each entry is one JSON line in history.jsonl.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	SourcePath string    `json:"sourcePath,omitempty"`
	SourceHash string    `json:"sourceHash"`
	KernelName string    `json:"kernelName,omitempty"`
	ArgCount   int       `json:"argCount"`
	ReportID   string    `json:"reportId,omitempty"`

	// ErrorKind and Error are set for failed extractions
	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HistoryPath returns the history file location under baseDir.
func HistoryPath(baseDir string) string {
	return filepath.Join(baseDir, "history.jsonl")
}

// HistoryWriter appends entries to <baseDir>/history.jsonl.
// It buffers writes and is safe for concurrent use.
type HistoryWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewHistoryWriter opens the history file for appending, creating it and
// baseDir if needed.
func NewHistoryWriter(baseDir string) (*HistoryWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	path := HistoryPath(baseDir)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}

	return &HistoryWriter{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Write buffers one entry. It reaches the file on Flush or Close.
func (hw *HistoryWriter) Write(entry HistoryEntry) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	if _, err := hw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	if err := hw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file.
func (hw *HistoryWriter) Flush() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush history writer: %w", err)
	}
	if err := hw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync history file: %w", err)
	}
	return nil
}

// Close flushes buffered entries and closes the file.
func (hw *HistoryWriter) Close() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.writer.Flush(); err != nil {
		hw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := hw.file.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the history file.
func (hw *HistoryWriter) Path() string {
	return hw.path
}

// ReadHistory returns all entries in baseDir's history, oldest first.
// A missing history file yields an empty slice.
func ReadHistory(baseDir string) ([]HistoryEntry, error) {
	file, err := os.Open(HistoryPath(baseDir))
	if os.IsNotExist(err) {
		return []HistoryEntry{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	return decodeHistory(file)
}

func decodeHistory(r io.Reader) ([]HistoryEntry, error) {
	entries := []HistoryEntry{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return entries, nil
}
