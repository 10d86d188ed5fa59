package store

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHistoryWriter_WriteAndRead(t *testing.T) {
	baseDir := t.TempDir()

	hw, err := NewHistoryWriter(baseDir)
	if err != nil {
		t.Fatalf("NewHistoryWriter failed: %v", err)
	}

	entries := []HistoryEntry{
		{Timestamp: time.Now(), SourcePath: "a.cl", SourceHash: HashSource("a"), KernelName: "a", ArgCount: 3},
		{Timestamp: time.Now(), SourcePath: "b.cl", SourceHash: HashSource("b"), ErrorKind: "ParseError", Error: "no kernel definitions"},
	}
	for _, e := range entries {
		if err := hw.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := hw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	read, err := ReadHistory(baseDir)
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if len(read) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(read))
	}
	if read[0].KernelName != "a" || read[0].ArgCount != 3 {
		t.Errorf("First entry mismatch: %+v", read[0])
	}
	if read[1].ErrorKind != "ParseError" || read[1].Error != "no kernel definitions" {
		t.Errorf("Second entry mismatch: %+v", read[1])
	}
}

func TestHistoryWriter_Appends(t *testing.T) {
	baseDir := t.TempDir()

	for i := 0; i < 2; i++ {
		hw, err := NewHistoryWriter(baseDir)
		if err != nil {
			t.Fatalf("NewHistoryWriter failed: %v", err)
		}
		if err := hw.Write(HistoryEntry{Timestamp: time.Now(), KernelName: "k"}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := hw.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	read, err := ReadHistory(baseDir)
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if len(read) != 2 {
		t.Errorf("Expected 2 entries across writers, got %d", len(read))
	}
}

func TestHistoryWriter_Flush(t *testing.T) {
	baseDir := t.TempDir()
	hw, err := NewHistoryWriter(baseDir)
	if err != nil {
		t.Fatalf("NewHistoryWriter failed: %v", err)
	}
	defer hw.Close()

	if err := hw.Write(HistoryEntry{Timestamp: time.Now(), KernelName: "flushed"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := hw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	data, err := os.ReadFile(hw.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), `"kernelName":"flushed"`) {
		t.Errorf("Flushed entry not on disk: %s", data)
	}
}

func TestHistoryWriter_Concurrent(t *testing.T) {
	baseDir := t.TempDir()
	hw, err := NewHistoryWriter(baseDir)
	if err != nil {
		t.Fatalf("NewHistoryWriter failed: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := hw.Write(HistoryEntry{Timestamp: time.Now(), ArgCount: i}); err != nil {
				t.Errorf("Write failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := hw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	read, err := ReadHistory(baseDir)
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if len(read) != n {
		t.Errorf("Expected %d entries, got %d", n, len(read))
	}
}

func TestReadHistory_Missing(t *testing.T) {
	read, err := ReadHistory(t.TempDir())
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if len(read) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(read))
	}
}

func TestReadHistory_Corrupt(t *testing.T) {
	baseDir := t.TempDir()
	content := `{"kernelName":"ok","argCount":1,"sourceHash":"x","timestamp":"2026-01-02T03:04:05Z"}` + "\n\nnot json\n"
	if err := os.WriteFile(HistoryPath(baseDir), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := ReadHistory(baseDir)
	if err == nil {
		t.Fatal("Expected error for corrupt history")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Expected error to name line 3, got %v", err)
	}
}
