package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/clargs/internal/clrt"
	"github.com/cwbudde/clargs/internal/hostbuf"
	"github.com/cwbudde/clargs/internal/kernelargs"
	"github.com/cwbudde/clargs/internal/store"
)

var (
	outputFormat string
	saveReport   bool
	writeHistory bool
	bufferSize   int
	bufferDir    string
	verifyDriver bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the kernel arguments of an OpenCL source file",
	Long: `Parses the file (or stdin when the file is "-" or omitted), finds its
single kernel and prints one row per argument.

With --size N the host buffer plan for a launch over N work items is
printed as well; --dump-buffers DIR also writes each planned host buffer,
zeroed, to DIR/<arg>.bin. With --save the result is stored as a report under
--data-dir. With --verify the kernel is also built by the OpenCL driver
(binaries built with -tags opencl) and the driver's argument metadata is
compared with the extracted one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&outputFormat, "format", "o", "", "Output format: table, json, yaml (default: table on a terminal, json otherwise)")
	extractCmd.Flags().BoolVar(&saveReport, "save", false, "Save the result as a report")
	extractCmd.Flags().BoolVar(&writeHistory, "history", false, "Append this run to the extraction history")
	extractCmd.Flags().IntVar(&bufferSize, "size", 0, "Plan host buffers for N work items (0 = no plan)")
	extractCmd.Flags().StringVar(&bufferDir, "dump-buffers", "", "Write the planned host buffers to this directory (requires --size)")
	extractCmd.Flags().BoolVar(&verifyDriver, "verify", false, "Cross-check the arguments against the OpenCL driver")

	rootCmd.AddCommand(extractCmd)
}

// extractOutput is what extract prints in json and yaml form.
type extractOutput struct {
	Kernel   string                `json:"kernel" yaml:"kernel"`
	Args     []kernelargs.Argument `json:"args" yaml:"args"`
	Buffers  []hostbuf.Spec        `json:"buffers,omitempty" yaml:"buffers,omitempty"`
	ReportID string                `json:"reportId,omitempty" yaml:"reportId,omitempty"`
	Verify   *verifyResult         `json:"verify,omitempty" yaml:"verify,omitempty"`
	// SourceStatus tells whether a saved report's source file still matches.
	SourceStatus string `json:"sourceStatus,omitempty" yaml:"sourceStatus,omitempty"`
}

// verifyResult is the outcome of --verify.
type verifyResult struct {
	Device     string          `json:"device" yaml:"device"`
	Mismatches []clrt.Mismatch `json:"mismatches" yaml:"mismatches"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	if bufferDir != "" && bufferSize <= 0 {
		return fmt.Errorf("--dump-buffers requires --size")
	}

	src, err := readSource(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format, err := resolveFormat(out, outputFormat)
	if err != nil {
		return err
	}

	entry := store.HistoryEntry{
		Timestamp:  time.Now(),
		SourcePath: path,
		SourceHash: store.HashSource(src),
	}

	kernel, err := kernelargs.ExtractKernel(src)
	if err != nil {
		entry.ErrorKind = kernelargs.Kind(err)
		entry.Error = err.Error()
		appendHistory(entry)
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Extracted kernel", "path", path, "kernel", kernel.Name, "args", len(kernel.Args))

	result := extractOutput{Kernel: kernel.Name, Args: kernel.Args}
	if bufferSize > 0 {
		result.Buffers, err = hostbuf.Plan(kernel.Args, bufferSize)
		if err != nil {
			return fmt.Errorf("failed to plan buffers: %w", err)
		}
	}
	if bufferDir != "" {
		paths, err := hostbuf.WriteFiles(bufferDir, result.Buffers)
		if err != nil {
			return err
		}
		slog.Info("Wrote host buffers", "dir", bufferDir, "files", len(paths))
	}

	if verifyDriver {
		result.Verify, err = verifyWithDriver(src, kernel)
		if err != nil {
			return err
		}
	}

	if saveReport {
		reportStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create report store: %w", err)
		}
		report := store.NewReport(path, src, kernel)
		if err := reportStore.SaveReport(report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		result.ReportID = report.ID
		slog.Info("Saved report", "id", report.ID, "kernel", kernel.Name)
	}

	entry.KernelName = kernel.Name
	entry.ArgCount = len(kernel.Args)
	entry.ReportID = result.ReportID
	appendHistory(entry)

	if err := writeResult(out, format, result); err != nil {
		return err
	}
	if result.Verify != nil && len(result.Verify.Mismatches) > 0 {
		return fmt.Errorf("driver disagrees on %d argument field(s)", len(result.Verify.Mismatches))
	}
	return nil
}

// verifyWithDriver builds src with the OpenCL driver and compares its
// argument metadata with kernel's.
func verifyWithDriver(src string, kernel *kernelargs.Kernel) (*verifyResult, error) {
	rt, err := clrt.InitOpenCL()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenCL: %w", err)
	}
	defer rt.Close()

	info, err := rt.BuildKernel(src, kernel.Name)
	if err != nil {
		return nil, fmt.Errorf("driver failed to build kernel %s: %w", kernel.Name, err)
	}

	mismatches := clrt.Compare(kernel.Args, info.Args)
	slog.Debug("Verified kernel with driver", "device", rt.Device.Name, "mismatches", len(mismatches))
	return &verifyResult{Device: rt.Device.Name, Mismatches: mismatches}, nil
}

// readSource reads path, or r when path is "-".
func readSource(r io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}
	return string(data), nil
}

// resolveFormat picks the output format, defaulting to a table on terminals.
func resolveFormat(w io.Writer, format string) (string, error) {
	switch format {
	case "table", "json", "yaml":
		return format, nil
	case "":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return "table", nil
		}
		return "json", nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// appendHistory records entry when history is enabled. Failures are logged,
// they never fail the extraction.
func appendHistory(entry store.HistoryEntry) {
	if !writeHistory && !saveReport {
		return
	}
	hw, err := store.NewHistoryWriter(dataDir)
	if err != nil {
		slog.Warn("Failed to open history", "error", err)
		return
	}
	if err := hw.Write(entry); err != nil {
		slog.Warn("Failed to write history entry", "error", err)
	}
	if err := hw.Close(); err != nil {
		slog.Warn("Failed to close history", "error", err)
	}
}

func writeResult(w io.Writer, format string, result extractOutput) error {
	if format == "table" {
		return writeTable(w, result)
	}
	return encode(w, format, result)
}

// encode writes v as indented json or yaml.
func encode(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, result extractOutput) error {
	fmt.Fprintf(w, "Kernel: %s\n\n", result.Kernel)

	if len(result.Args) == 0 {
		fmt.Fprintln(w, "No arguments.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tSPACE\tKIND\tWIDTH\tQUALIFIERS\tINPUT")
		fmt.Fprintln(tw, "----\t----\t-----\t----\t-----\t----------\t-----")
		for _, arg := range result.Args {
			typ := arg.TypeName
			if arg.IsPointer {
				typ += "*"
			}
			quals := strings.Join(arg.Qualifiers, " ")
			if quals == "" {
				quals = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				arg.Name,
				typ,
				arg.Space,
				arg.Kind,
				arg.VectorWidth,
				quals,
				yesNo(arg.HasInput),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(result.Buffers) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BUFFER\tKIND\tELEMENTS\tSIZE\tHOST")
		fmt.Fprintln(tw, "------\t----\t--------\t----\t----")
		for _, b := range result.Buffers {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				b.Name,
				b.Kind,
				b.Elements,
				formatBytes(int64(b.Bytes)),
				yesNo(b.HasInput),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nHost memory: %s\n", formatBytes(int64(hostbuf.TotalBytes(result.Buffers))))
	}

	if result.Verify != nil {
		if len(result.Verify.Mismatches) == 0 {
			fmt.Fprintf(w, "\nVerified on %s: driver agrees.\n", result.Verify.Device)
		} else {
			fmt.Fprintf(w, "\nVerified on %s: %d mismatch(es)\n", result.Verify.Device, len(result.Verify.Mismatches))
			for _, m := range result.Verify.Mismatches {
				fmt.Fprintf(w, "  - %s\n", m)
			}
		}
	}

	if result.ReportID != "" {
		fmt.Fprintf(w, "\nReport: %s\n", result.ReportID)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
