package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/output"
	"github.com/jackzampolin/stockmeta/internal/svcctx"
)

var inspectRecursive bool

type inspectReport struct {
	Name        string           `json:"name" yaml:"name"`
	Path        string           `json:"path" yaml:"path"`
	MIMEType    string           `json:"mime_type" yaml:"mime_type"`
	Size        int64            `json:"size" yaml:"size"`
	Width       int              `json:"width,omitempty" yaml:"width,omitempty"`
	Height      int              `json:"height,omitempty" yaml:"height,omitempty"`
	Embedded    *images.Embedded `json:"embedded,omitempty" yaml:"embedded,omitempty"`
	DuplicateOf string           `json:"duplicate_of,omitempty" yaml:"duplicate_of,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <image-or-dir>...",
	Short: "Show what generate would process, without calling the API",
	Long: `Inspect lists the images a batch would contain with their type, size and
dimensions, any title/keywords already embedded (IPTC, XMP, EXIF), and
near-duplicates within the batch. Rejected files are listed with the reason.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setupServices(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		cfg := svcctx.ConfigFrom(ctx)

		loader := images.NewLoader(images.LoaderConfig{
			Limits:    cfg.ImageLimits(),
			Recursive: inspectRecursive,
			Logger:    svcctx.LoggerFrom(ctx),
		})
		imgs, rejected, err := loader.Load(args)
		if err != nil {
			return err
		}

		dedup := images.NewDuplicateFilter(cfg.Dedup.Threshold)
		reports := make([]inspectReport, 0, len(imgs))
		for _, img := range imgs {
			reports = append(reports, inspectImage(img, dedup))
		}

		if output.IsStructured() {
			return output.Print(map[string]any{"images": reports, "rejected": rejected})
		}
		w := cmd.OutOrStdout()
		for _, r := range reports {
			fmt.Fprintf(w, "%s  %s  %s", r.Name, r.MIMEType, humanSize(r.Size))
			if r.Width > 0 {
				fmt.Fprintf(w, "  %dx%d", r.Width, r.Height)
			}
			fmt.Fprintln(w)
			if e := r.Embedded; e != nil {
				if e.Title != "" {
					fmt.Fprintf(w, "  title:    %s\n", e.Title)
				}
				if len(e.Keywords) > 0 {
					fmt.Fprintf(w, "  keywords: %s\n", strings.Join(e.Keywords, ", "))
				}
			}
			if r.DuplicateOf != "" {
				fmt.Fprintf(w, "  duplicate of %s\n", r.DuplicateOf)
			}
			if r.Error != "" {
				fmt.Fprintf(w, "  error: %s\n", r.Error)
			}
		}
		for _, r := range rejected {
			fmt.Fprintf(w, "rejected %s: %s\n", r.Path, r.Reason)
		}
		fmt.Fprintf(w, "%d images, %d rejected\n", len(reports), len(rejected))
		return nil
	},
}

func inspectImage(img *images.Image, dedup *images.DuplicateFilter) inspectReport {
	r := inspectReport{Name: img.Name, Path: img.Path, MIMEType: img.MIMEType, Size: img.Size}
	data, err := img.Bytes()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if w, h, _, err := images.Dimensions(data); err == nil {
		r.Width, r.Height = w, h
	}
	r.Embedded = images.ReadEmbedded(data, img.MIMEType)
	if match, err := dedup.Check(img); err == nil {
		r.DuplicateOf = match
	}
	return r
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

func init() {
	inspectCmd.Flags().BoolVarP(&inspectRecursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(inspectCmd)
}
