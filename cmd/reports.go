package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clargs/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
	historyLimit  int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved extraction reports",
	Long: `Manage extraction reports saved with "extract --save" or by the HTTP
service, and inspect the extraction history.`,
}

var listReportsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved reports",
	Long:  `Display all reports with ID, timestamp, kernel name, argument count, source and size.`,
	Args:  cobra.NoArgs,
	RunE:  runListReports,
}

var showReportCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowReport,
}

var cleanReportsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old reports",
	Long: `Delete old reports based on retention policy.
You can keep only the newest N reports or delete reports older than N days.`,
	Args: cobra.NoArgs,
	RunE: runCleanReports,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the extraction history",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(reportsCmd)

	reportsCmd.AddCommand(listReportsCmd)
	reportsCmd.AddCommand(showReportCmd)
	reportsCmd.AddCommand(cleanReportsCmd)
	reportsCmd.AddCommand(historyCmd)

	showReportCmd.Flags().StringVarP(&outputFormat, "format", "o", "", "Output format: table, json, yaml")

	cleanReportsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N reports (0 = keep all)")
	cleanReportsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete reports older than N days (0 = no age limit)")
	cleanReportsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show only the last N entries (0 = all)")
}

func runListReports(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	reportStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	infos, err := reportStore.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No reports found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPORT ID\tTIMESTAMP\tKERNEL\tARGS\tSOURCE\tSIZE")
	fmt.Fprintln(w, "---------\t---------\t------\t----\t------\t----")

	for _, info := range infos {
		size, err := getDirSize(filepath.Join(dataDir, "reports", info.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		source := info.SourcePath
		if source == "" {
			source = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(info.ID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.KernelName,
			info.ArgCount,
			source,
			sizeStr,
		)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal reports: %d\n", len(infos))
	return nil
}

func runShowReport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	reportStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	id, err := resolveReportID(reportStore, args[0])
	if err != nil {
		return err
	}

	report, err := reportStore.LoadReport(id)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	format, err := resolveFormat(out, outputFormat)
	if err != nil {
		return err
	}
	status := sourceStatus(report)
	if status == sourceChanged {
		slog.Warn("Source changed since extraction", "id", report.ID, "path", report.SourcePath)
	}
	if format == "table" {
		source := report.SourcePath
		if status != "" {
			source += " (" + status + ")"
		}
		fmt.Fprintf(out, "Report: %s\nSource: %s\nSHA-256: %s\nCreated: %s\n\n",
			report.ID, source, report.SourceHash, report.Timestamp.Format(time.RFC3339))
	}

	return writeResult(out, format, extractOutput{
		Kernel:       report.Kernel.Name,
		Args:         report.Kernel.Args,
		ReportID:     report.ID,
		SourceStatus: status,
	})
}

const (
	sourceUnchanged = "unchanged"
	sourceChanged   = "changed"
	sourceMissing   = "missing"
)

// sourceStatus compares a report with the file it was extracted from. It is
// empty for reports without a source file.
func sourceStatus(report *store.Report) string {
	if report.SourcePath == "" || report.SourcePath == "-" {
		return ""
	}
	data, err := os.ReadFile(report.SourcePath)
	if err != nil {
		return sourceMissing
	}
	if report.Matches(string(data)) {
		return sourceUnchanged
	}
	return sourceChanged
}

// resolveReportID accepts a full ID or the unique prefix shown by list.
func resolveReportID(s store.Store, id string) (string, error) {
	id = strings.TrimSuffix(id, "...")
	if _, err := s.LoadReport(id); err == nil {
		return id, nil
	}

	infos, err := s.ListReports()
	if err != nil {
		return "", fmt.Errorf("failed to list reports: %w", err)
	}
	var matches []string
	for _, info := range infos {
		if strings.HasPrefix(info.ID, id) {
			matches = append(matches, info.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", &store.NotFoundError{ID: id}
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("report id prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func runCleanReports(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	reportStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	infos, err := reportStore.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No reports to clean.")
		return nil
	}

	toDelete := selectReportsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No reports match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d report(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (kernel %s, %s)\n",
			shortID(info.ID),
			info.KernelName,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean && !confirm(cmd.InOrStdin(), out) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		err := reportStore.DeleteReport(info.ID)
		if err != nil {
			slog.Error("Failed to delete report", "id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted report", "id", info.ID)
			deleted++
		}
	}

	fmt.Fprintf(out, "\nDeleted %d report(s), %d failed.\n", deleted, failed)
	return nil
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}

// selectReportsForDeletion determines which reports should be deleted based on retention policy
func selectReportsForDeletion(infos []store.ReportInfo, keepLast int, olderThanDays int) []store.ReportInfo {
	var toDelete []store.ReportInfo
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.ReportInfo, len(infos))
		copy(sorted, infos)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		})

		for _, info := range sorted[keepLast:] {
			if !selected[info.ID] {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	return toDelete
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	entries, err := store.ReadHistory(dataDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history.")
		return nil
	}
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[len(entries)-historyLimit:]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tSOURCE\tKERNEL\tARGS\tRESULT")
	fmt.Fprintln(w, "---------\t------\t------\t----\t------")
	for _, e := range entries {
		result := "ok"
		if e.ErrorKind != "" || e.Error != "" {
			result = strings.TrimSpace(e.ErrorKind + " " + e.Error)
		} else if e.ReportID != "" {
			result = "saved " + shortID(e.ReportID)
		}

		kernel := e.KernelName
		if kernel == "" {
			kernel = "-"
		}
		source := e.SourcePath
		if source == "" {
			source = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			source,
			kernel,
			e.ArgCount,
			result,
		)
	}
	return w.Flush()
}

// shortID truncates an ID for display
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
