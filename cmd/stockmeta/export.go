package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/export"
	"github.com/jackzampolin/stockmeta/internal/home"
)

var exportCSV string

var exportCmd = &cobra.Command{
	Use:   "export <session-file>",
	Short: "Write a session's curated metadata to CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := export.LoadSession(args[0])
		if err != nil {
			return err
		}
		path := exportCSV
		if path == "" {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			path = h.ExportPath(export.DefaultCSVName(time.Now()))
		}
		if err := export.WriteCSVFile(path, session.Records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d images to %s\n", len(session.Records), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "CSV output path (default: ~/.stockmeta/exports/microstock-metadata-DATE.csv)")
	rootCmd.AddCommand(exportCmd)
}
