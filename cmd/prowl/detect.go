package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prowlio/prowl/internal/browser"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Probe the machine for usable browser engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := browser.Detect()

		fmt.Println("Backends:")
		for _, b := range report.Backends {
			fmt.Printf("  %s\n", b)
		}
		if len(report.Executables) == 0 {
			fmt.Println("Executables: none (bundled engines only)")
			return nil
		}
		fmt.Println("Executables:")
		for _, exe := range report.Executables {
			fmt.Printf("  %-10s %s\n", exe.Kind, exe.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
