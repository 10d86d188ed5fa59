package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/clargs/internal/clrt"
	"github.com/cwbudde/clargs/internal/kernelargs"
	"github.com/cwbudde/clargs/internal/store"
)

const testKernel = `
inline float twice(float x) { return 2.0f * x; }

__kernel void scale(__global float4* data, __local int* scratch, const uint n) {
	size_t i = get_global_id(0);
	if (i < n) data[i] = twice(data[i].x);
}
`

func TestExtractCommand_JSON(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	src := writeSource(t, testKernel)

	out, err := executeCommand(t, "", "--config", cfgPath, "extract", src)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var result extractOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, out)
	}
	if result.Kernel != "scale" {
		t.Errorf("Expected kernel scale, got %s", result.Kernel)
	}
	if len(result.Args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(result.Args))
	}
	if result.Args[2].Kind != kernelargs.Uint32 || !result.Args[2].IsConst {
		t.Errorf("Unexpected third argument: %+v", result.Args[2])
	}
	if result.Buffers != nil || result.ReportID != "" {
		t.Errorf("Expected no buffers or report, got %+v", result)
	}
}

func TestExtractCommand_StdinYAML(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	out, err := executeCommand(t, testKernel, "--config", cfgPath, "extract", "-o", "yaml")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var result extractOutput
	if err := yaml.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Output is not YAML: %v\n%s", err, out)
	}
	if result.Kernel != "scale" || len(result.Args) != 3 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Args[0].Kind != kernelargs.Float32 || result.Args[0].VectorWidth != 4 {
		t.Errorf("Unexpected first argument: %+v", result.Args[0])
	}
}

func TestExtractCommand_TableWithPlan(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	src := writeSource(t, testKernel)

	out, err := executeCommand(t, "", "--config", cfgPath, "extract", "-o", "table", "--size", "16", src)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	for _, want := range []string{"Kernel: scale", "data", "float4*", "global", "scratch", "BUFFER", "Host memory: 260 B"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestExtractCommand_DumpBuffers(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	src := writeSource(t, testKernel)
	dir := filepath.Join(t.TempDir(), "bufs")

	if _, err := executeCommand(t, "", "--config", cfgPath, "extract", "-o", "json", "--size", "16", "--dump-buffers", dir, src); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	for name, size := range map[string]int64{"data.bin": 256, "n.bin": 4} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Expected %s to be written: %v", name, err)
		}
		if info.Size() != size {
			t.Errorf("%s: got %d bytes, want %d", name, info.Size(), size)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "scratch.bin")); !os.IsNotExist(err) {
		t.Error("Local buffer should not be written")
	}

	if _, err := executeCommand(t, "", "--config", cfgPath, "extract", "--dump-buffers", dir, src); err == nil {
		t.Error("Expected --dump-buffers without --size to fail")
	}
}

func TestExtractCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind string
		want error
	}{
		{"two kernels", "__kernel void a() {}\n__kernel void b() {}", kernelargs.KindParse, kernelargs.ErrMultipleKernels},
		{"no kernel", "void f() {}", kernelargs.KindParse, kernelargs.ErrNoKernel},
		{"syntax", "#define N 4\n__kernel void k() {}", kernelargs.KindSyntax, nil},
		{"syntax after pragma", "#pragma OPENCL EXTENSION cl_khr_fp64 : enable\n#include <x.h>\n__kernel void k() {}", kernelargs.KindSyntax, nil},
		{"no memory space", "__kernel void k(float* p) {}", kernelargs.KindKernelArg, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath, _ := writeConfig(t, "")
			src := writeSource(t, tt.src)

			_, err := executeCommand(t, "", "--config", cfgPath, "extract", src)
			if err == nil {
				t.Fatal("Expected error")
			}
			if kind := kernelargs.Kind(err); kind != tt.kind {
				t.Errorf("Expected kind %s, got %q (%v)", tt.kind, kind, err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), src) {
				t.Errorf("Expected error to name the source file, got %v", err)
			}
		})
	}
}

func TestExtractCommand_MissingFile(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	_, err := executeCommand(t, "", "--config", cfgPath, "extract", "/nonexistent/kernel.cl")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if kernelargs.Kind(err) != "" {
		t.Errorf("Read errors should not have an extraction kind, got %s", kernelargs.Kind(err))
	}
}

func TestExtractCommand_UnknownFormat(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	src := writeSource(t, testKernel)

	_, err := executeCommand(t, "", "--config", cfgPath, "extract", "-o", "xml", src)
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("Expected unknown format error, got %v", err)
	}
}

func TestExtractCommand_SaveAndHistory(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	src := writeSource(t, testKernel)
	bad := writeSource(t, "void f() {}")

	out, err := executeCommand(t, "", "--config", cfgPath, "extract", "--save", src)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	var result extractOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if result.ReportID == "" {
		t.Fatal("Expected a report id")
	}

	if _, err := executeCommand(t, "", "--config", cfgPath, "extract", "--history", bad); err == nil {
		t.Fatal("Expected extraction error")
	}

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	report, err := fs.LoadReport(result.ReportID)
	if err != nil {
		t.Fatalf("LoadReport failed: %v", err)
	}
	if report.SourcePath != src || report.Kernel.Name != "scale" {
		t.Errorf("Unexpected report: %+v", report)
	}

	entries, err := store.ReadHistory(dataDir)
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(entries))
	}
	if entries[0].ReportID != result.ReportID {
		t.Errorf("Expected first entry to reference the report, got %+v", entries[0])
	}
	if entries[1].ErrorKind != kernelargs.KindParse {
		t.Errorf("Expected second entry to record a ParseError, got %+v", entries[1])
	}
}

func TestExtractCommand_NoHistoryByDefault(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	src := writeSource(t, testKernel)

	if _, err := executeCommand(t, "", "--config", cfgPath, "extract", src); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	entries, err := store.ReadHistory(dataDir)
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no history, got %d entries", len(entries))
	}
}

func TestExtractCommand_ConfigPrecedence(t *testing.T) {
	cfgPath, _ := writeConfig(t, "format: yaml\n")
	src := writeSource(t, testKernel)

	// config file beats the built-in default
	out, err := executeCommand(t, "", "--config", cfgPath, "extract", src)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.HasPrefix(out, "kernel: scale") {
		t.Errorf("Expected YAML output from config, got:\n%s", out)
	}

	// an explicit flag beats the config file
	out, err = executeCommand(t, "", "--config", cfgPath, "extract", "-o", "json", src)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.HasPrefix(out, "{") {
		t.Errorf("Expected JSON output from flag, got:\n%s", out)
	}
}

func TestExtractCommand_ConfigSaveReports(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "save_reports: true\n")
	src := writeSource(t, testKernel)

	if _, err := executeCommand(t, "", "--config", cfgPath, "extract", src); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	infos, err := fs.ListReports()
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("Expected 1 report, got %d", len(infos))
	}
}

func TestResolveFormat(t *testing.T) {
	var sb strings.Builder
	tests := []struct {
		in   string
		want string
	}{
		{"", "json"},
		{"table", "table"},
		{"json", "json"},
		{"yaml", "yaml"},
	}
	for _, tt := range tests {
		got, err := resolveFormat(&sb, tt.in)
		if err != nil {
			t.Fatalf("resolveFormat(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("resolveFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestExtractCommand_VerifyWithoutDriver(t *testing.T) {
	if clrt.Available() {
		t.Skip("binary built with OpenCL support")
	}
	cfgPath, _ := writeConfig(t, "")
	src := writeSource(t, testKernel)

	_, err := executeCommand(t, "", "--config", cfgPath, "extract", "--verify", src)
	if !errors.Is(err, clrt.ErrNotBuilt) {
		t.Errorf("Expected ErrNotBuilt, got %v", err)
	}
}

func TestDevicesCommand_WithoutDriver(t *testing.T) {
	if clrt.Available() {
		t.Skip("binary built with OpenCL support")
	}
	cfgPath, _ := writeConfig(t, "")

	_, err := executeCommand(t, "", "--config", cfgPath, "devices")
	if !errors.Is(err, clrt.ErrNotBuilt) {
		t.Errorf("Expected ErrNotBuilt, got %v", err)
	}
}
