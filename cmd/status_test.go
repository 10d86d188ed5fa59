package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwbudde/clargs/internal/server"
	"github.com/cwbudde/clargs/internal/store"
)

func TestStatusCommand(t *testing.T) {
	reportStore, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	srv := server.NewServer(":0", server.Options{Store: reportStore})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(server.ExtractRequest{Source: testKernel, Save: true})
	resp, err := http.Post(ts.URL+"/api/v1/extract", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	var extracted server.ExtractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	resp.Body.Close()

	cfgPath, _ := writeConfig(t, "")

	out, err := executeCommand(t, "", "--config", cfgPath, "status", "--server", ts.URL)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "is healthy") || !strings.Contains(out, extracted.ReportID) {
		t.Errorf("Unexpected status output:\n%s", out)
	}

	out, err = executeCommand(t, "", "--config", cfgPath, "status", "--server", ts.URL, extracted.ReportID)
	if err != nil {
		t.Fatalf("status with id failed: %v", err)
	}
	if !strings.Contains(out, "Kernel: scale") {
		t.Errorf("Unexpected report output:\n%s", out)
	}

	_, err = executeCommand(t, "", "--config", cfgPath, "status", "--server", ts.URL, "missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 error, got %v", err)
	}
}
