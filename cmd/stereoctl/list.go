package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"stereoctl.app/stereoctl/devices"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List automation bridges on the local network",
	Args:  cobra.NoArgs,
	RunE:  listRun,
}

func listRun(cmd *cobra.Command, args []string) error {
	deviceList, err := devices.LoadAllDevices(cmd.Context(), cfg.DiscoveryDelay)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	for q, d := range deviceList {
		boldStart := ""
		boldEnd := ""

		if runtime.GOOS == "linux" {
			boldStart = "\033[1m"
			boldEnd = "\033[0m"
		}
		fmt.Fprintf(out, "%sDevice %v%s\n", boldStart, q+1, boldEnd)
		fmt.Fprintf(out, "%s--------%s\n", boldStart, boldEnd)
		fmt.Fprintf(out, "%sName:%s  %s\n", boldStart, boldEnd, d.Name)
		fmt.Fprintf(out, "%sURL:%s   %s\n", boldStart, boldEnd, d.Addr)
		fmt.Fprintf(out, "%sFound:%s %s\n", boldStart, boldEnd, d.Type)
		fmt.Fprintln(out)
	}

	return nil
}
