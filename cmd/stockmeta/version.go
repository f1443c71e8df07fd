package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/output"
	"github.com/jackzampolin/stockmeta/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if output.IsStructured() {
			return output.Print(info)
		}
		fmt.Printf("stockmeta %s\n", info.Release)
		fmt.Printf("  Go:     %s\n", info.Go)
		fmt.Printf("  Commit: %s\n", info.Commit)
		fmt.Printf("  Date:   %s\n", info.Date)
		return nil
	},
}
