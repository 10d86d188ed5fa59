package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clargs/internal/store"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [report-id]",
	Short: "Query a running server for its reports",
	Long: `Queries a clargs server started with "serve".
If no report-id is provided, checks the server's health and lists its reports.
If report-id is provided, shows that report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimSuffix(serverURL, "/")
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if err := getJSON(base+"/healthz", new(map[string]string)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Server %s is healthy.\n\n", base)

		var infos []store.ReportInfo
		if err := getJSON(base+"/api/v1/reports", &infos); err != nil {
			return err
		}
		return listRemoteReports(out, infos)
	}

	var report store.Report
	if err := getJSON(base+"/api/v1/reports/"+args[0], &report); err != nil {
		return err
	}
	return writeResult(out, "table", extractOutput{
		Kernel:   report.Kernel.Name,
		Args:     report.Kernel.Args,
		ReportID: report.ID,
	})
}

func getJSON(url string, v any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func listRemoteReports(out io.Writer, infos []store.ReportInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(out, "No reports found")
		return nil
	}

	fmt.Fprintf(out, "Found %d report(s):\n\n", len(infos))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPORT ID\tTIMESTAMP\tKERNEL\tARGS")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			info.ID,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.KernelName,
			info.ArgCount,
		)
	}
	return w.Flush()
}
