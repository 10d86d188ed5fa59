package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clargs/internal/clrt"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List OpenCL platforms and devices",
	Long: `Lists the OpenCL platforms and devices visible to this binary.
Requires a build with -tags opencl.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().StringVarP(&outputFormat, "format", "o", "", "Output format: table, json, yaml")
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	platforms, err := clrt.EnumeratePlatforms()
	if err != nil {
		return fmt.Errorf("failed to enumerate OpenCL platforms: %w", err)
	}

	format, err := resolveFormat(out, outputFormat)
	if err != nil {
		return err
	}
	switch format {
	case "json", "yaml":
		return encode(out, format, platforms)
	}

	if len(platforms) == 0 {
		fmt.Fprintln(out, "No OpenCL platforms found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tDEVICE\tTYPE\tUNITS\tVERSION")
	for _, p := range platforms {
		if len(p.Devices) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", p.Name, p.Version)
			continue
		}
		for _, d := range p.Devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.Name, d.Name, d.Type, d.MaxComputeUnits, d.Version)
		}
	}
	return w.Flush()
}
